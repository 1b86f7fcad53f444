package upload

import "mime/multipart"

// Item: одна картинка из запроса в порядке отправки.
type Item struct {
	Name string
	Data []byte
}

type Batch struct {
	Items      []Item
	TotalBytes int64
}

func (b *Batch) Count() int {
	return len(b.Items)
}

type Limits struct {
	MaxImages     int
	MaxImageBytes int64
}

type BatchValidator interface {
	Validate(files []*multipart.FileHeader) (*Batch, error)
}
