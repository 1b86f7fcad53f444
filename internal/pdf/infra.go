package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/normalize"
)

// pixelsPerInch maps image pixels onto page points; a page is exactly the
// size of its image, so nothing is cropped or scaled.
const pixelsPerInch = 96.0

// FPDFAssembler собирает PDF через gofpdf: страница по размеру картинки,
// JPEG кладётся в файл без перекодирования.
type FPDFAssembler struct{}

func NewFPDFAssembler() *FPDFAssembler {
	return &FPDFAssembler{}
}

func (a *FPDFAssembler) Assemble(ctx context.Context, images []normalize.Image) ([]byte, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to assemble")
	}

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: points(images[0].Width), Ht: points(images[0].Height)},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(img.Data))
		if err != nil {
			return nil, apperr.ProcessingInternal(img.Name, fmt.Errorf("read jpeg header: %w", err))
		}

		name := fmt.Sprintf("page-%d", i+1)
		if info := doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data)); info == nil {
			return nil, apperr.ProcessingInternal(img.Name, fmt.Errorf("register image: %w", doc.Error()))
		}

		// "P" всегда: с "L" gofpdf меняет ширину и высоту местами
		size := gofpdf.SizeType{Wd: points(cfg.Width), Ht: points(cfg.Height)}
		doc.AddPageFormat("P", size)
		doc.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
	}

	if err := doc.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func points(px int) float64 {
	return float64(px) * 72 / pixelsPerInch
}

// CommandAssembler отдаёт сборку внешней утилите img2pdf.
type CommandAssembler struct {
	bin string
}

func NewCommandAssembler(bin string) *CommandAssembler {
	return &CommandAssembler{bin: bin}
}

func (a *CommandAssembler) Assemble(ctx context.Context, images []normalize.Image) ([]byte, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to assemble")
	}

	tmpDir, err := os.MkdirTemp("", "img2pdf-*")
	if err != nil {
		return nil, err
	}
	// подчистим потом
	defer os.RemoveAll(tmpDir)

	args := make([]string, 0, len(images)+2)
	for i, img := range images {
		fn := filepath.Join(tmpDir, fmt.Sprintf("page-%04d.jpg", i+1))
		if err := os.WriteFile(fn, img.Data, 0o600); err != nil {
			return nil, err
		}
		args = append(args, fn)
	}
	output := filepath.Join(tmpDir, "output.pdf")
	args = append(args, "-o", output)

	cmd := exec.CommandContext(ctx, a.bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", a.bin, err, bytes.TrimSpace(out))
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("%s produced no output: %w", a.bin, err)
	}
	return data, nil
}
