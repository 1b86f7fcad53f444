package pdf

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/normalize"
	"github.com/Vovarama1992/file_changer/internal/pdf/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcAssembler func(ctx context.Context, images []normalize.Image) ([]byte, error)

func (f funcAssembler) Assemble(ctx context.Context, images []normalize.Image) ([]byte, error) {
	return f(ctx, images)
}

func TestPDFServiceTimesOutStuckAssembler(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := funcAssembler(func(context.Context, []normalize.Image) ([]byte, error) {
		<-release
		return nil, nil
	})

	start := time.Now()
	_, err := NewPDFService(stuck, 30*time.Millisecond).Assemble(context.Background(), []normalize.Image{{}})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	e := apperr.From(err)
	assert.Equal(t, apperr.CodeAssemblyTimeout, e.Code)
	assert.Equal(t, 504, apperr.HTTPStatus(err))
}

func TestPDFServiceMapsAssemblerErrors(t *testing.T) {
	failing := funcAssembler(func(context.Context, []normalize.Image) ([]byte, error) {
		return nil, errors.New("disk full")
	})
	_, err := NewPDFService(failing, time.Second).Assemble(context.Background(), []normalize.Image{{}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.From(err).Code)

	deadline := funcAssembler(func(context.Context, []normalize.Image) ([]byte, error) {
		return nil, context.DeadlineExceeded
	})
	_, err = NewPDFService(deadline, time.Second).Assemble(context.Background(), []normalize.Image{{}})
	assert.Equal(t, apperr.CodeAssemblyTimeout, apperr.From(err).Code)
}

func TestPDFServiceRejectsEmptyOutput(t *testing.T) {
	empty := funcAssembler(func(context.Context, []normalize.Image) ([]byte, error) {
		return nil, nil
	})
	_, err := NewPDFService(empty, time.Second).Assemble(context.Background(), []normalize.Image{{}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.From(err).Code)
}

func TestPDFServicePassesThroughResult(t *testing.T) {
	imgs := []normalize.Image{
		jpegOf(t, filled(8, 8, color.White)),
		jpegOf(t, filled(8, 8, color.Black)),
	}
	data, err := NewPDFService(NewFPDFAssembler(), time.Second).Assemble(context.Background(), imgs)
	require.NoError(t, err)
	assert.Equal(t, 2, pdftest.PageCount(data))
}
