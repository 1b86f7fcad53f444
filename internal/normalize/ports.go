package normalize

import (
	"context"

	"github.com/Vovarama1992/file_changer/internal/upload"
)

// Image: картинка в каноническом виде: RGB JPEG, длинная сторона не больше лимита.
type Image struct {
	Name   string
	Data   []byte
	Width  int
	Height int
}

// Processor turns one uploaded item into its canonical form.
type Processor interface {
	Process(item upload.Item) (Image, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, items []upload.Item) ([]Image, error)
}
