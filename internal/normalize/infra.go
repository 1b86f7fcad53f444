package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/upload"
	"github.com/disintegration/imaging"

	// декодеры, которых нет в стандартной библиотеке
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// maxSourceDimension caps width/height read from headers before decoding,
	// so a lying header cannot force a huge allocation.
	maxSourceDimension = 32768
	// maxSourcePixels keeps one decoded NRGBA buffer under 256 MB.
	maxSourcePixels int64 = 64 * 1024 * 1024
)

type ImagingProcessor struct {
	maxDimension int
	quality      int
}

func NewImagingProcessor(maxDimension, quality int) *ImagingProcessor {
	return &ImagingProcessor{maxDimension: maxDimension, quality: quality}
}

func (p *ImagingProcessor) Process(item upload.Item) (Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(item.Data))
	if err != nil {
		return Image{}, apperr.Processing(item.Name, fmt.Errorf("read header: %w", err))
	}
	if err := checkBounds(cfg.Width, cfg.Height); err != nil {
		return Image{}, apperr.Processing(item.Name, err)
	}

	src, err := imaging.Decode(bytes.NewReader(item.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, apperr.Processing(item.Name, fmt.Errorf("decode: %w", err))
	}

	img := flatten(src)

	b := img.Bounds()
	if b.Dx() > p.maxDimension || b.Dy() > p.maxDimension {
		img = imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return Image{}, apperr.ProcessingInternal(item.Name, fmt.Errorf("encode: %w", err))
	}

	b = img.Bounds()
	return Image{
		Name:   item.Name,
		Data:   buf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// flatten кладёт картинку на белый фон: в PDF прозрачности нет.
// Результат всегда NRGBA с непрозрачной альфой, поэтому JPEG выходит трёхканальным.
func flatten(src image.Image) *image.NRGBA {
	b := src.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}

func checkBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > maxSourceDimension || height > maxSourceDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	if pixels := int64(width) * int64(height); pixels > maxSourcePixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", pixels, maxSourcePixels)
	}
	return nil
}
