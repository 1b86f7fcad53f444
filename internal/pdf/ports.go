package pdf

import (
	"context"

	"github.com/Vovarama1992/file_changer/internal/normalize"
)

// Assembler склеивает картинки в один PDF: одна страница на картинку,
// порядок страниц = порядок картинок.
type Assembler interface {
	Assemble(ctx context.Context, images []normalize.Image) ([]byte, error)
}
