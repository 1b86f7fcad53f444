package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Vovarama1992/file_changer/internal/apperr"
)

type Service struct {
	backends map[Backend]Converter
	timeout  time.Duration
}

func NewService(office, text Converter, timeout time.Duration) *Service {
	return &Service{
		backends: map[Backend]Converter{
			BackendOffice: office,
			BackendText:   text,
		},
		timeout: timeout,
	}
}

// Convert dispatches the (from, to) pair to its backend under the timeout.
func (s *Service) Convert(ctx context.Context, data []byte, filename, from, to string) (*Result, error) {
	src, dst := ParseFormat(from), ParseFormat(to)
	kind := LookupKind(src, dst)
	if kind == KindUnknown {
		return nil, apperr.UnsupportedConversion(string(src), string(dst))
	}
	conv := s.backends[kind.Backend()]
	if conv == nil {
		return nil, apperr.UnsupportedConversion(string(src), string(dst))
	}
	if len(data) == 0 {
		return nil, apperr.Validation(apperr.CodeNoFilesProvided, filename, "no file provided")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := conv.Convert(ctx, data, src, kind)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.ConversionTimeout(err)
		}
		return nil, apperr.Internal(fmt.Sprintf("conversion %s failed", kind), err)
	}

	return &Result{
		Data:        out,
		Filename:    outputName(filename, dst),
		ContentType: ContentType(dst),
	}, nil
}

func outputName(filename string, to Format) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "converted"
	}
	return base + "." + string(to)
}
