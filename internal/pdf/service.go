package pdf

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/normalize"
)

type PDFService struct {
	asm     Assembler
	timeout time.Duration
}

func NewPDFService(asm Assembler, timeout time.Duration) *PDFService {
	return &PDFService{asm: asm, timeout: timeout}
}

// Assemble bounds the assembler call by the configured timeout. An assembler
// that ignores its context is abandoned; its result is dropped.
func (s *PDFService) Assemble(ctx context.Context, images []normalize.Image) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := s.asm.Assemble(ctx, images)
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, assemblyError(r.err)
		}
		if len(r.data) == 0 {
			return nil, apperr.Internal("pdf assembly produced no output", nil)
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, assemblyError(ctx.Err())
	}
}

func assemblyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.AssemblyTimeout(err)
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Internal("pdf assembly failed", err)
}
