package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// soffice порождает дочерние процессы, которые держат stdout после kill
const waitDelay = 5 * time.Second

// OfficeConverter гоняет документы через headless LibreOffice.
type OfficeConverter struct {
	bin string
}

func NewOfficeConverter(bin string) *OfficeConverter {
	return &OfficeConverter{bin: bin}
}

func (c *OfficeConverter) Convert(ctx context.Context, data []byte, src Format, kind Kind) ([]byte, error) {
	// 1. уникальный temp-dir на каждый вызов
	tmpDir, err := os.MkdirTemp("", "officeconv-*")
	if err != nil {
		return nil, err
	}
	// подчистим потом
	defer os.RemoveAll(tmpDir)

	input := filepath.Join(tmpDir, "input."+string(src))
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, err
	}

	// 2. запускаем soffice
	args := []string{"--headless"}
	if f := kind.InFilter(); f != "" {
		args = append(args, "--infilter="+f)
	}
	args = append(args, "--convert-to", string(kind.To()), "--outdir", tmpDir, input)

	cmd := exec.CommandContext(ctx, c.bin, args...)
	// у LibreOffice свой профиль; изолируем, чтобы параллельные вызовы не дрались за lock
	cmd.Env = append(os.Environ(), "HOME="+tmpDir)
	cmd.WaitDelay = waitDelay
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", c.bin, err, bytes.TrimSpace(out))
	}

	// 3. результат лежит рядом: input.<to>
	out, err := os.ReadFile(filepath.Join(tmpDir, "input."+string(kind.To())))
	if err != nil {
		return nil, fmt.Errorf("conversion produced no output: %w", err)
	}
	return out, nil
}
