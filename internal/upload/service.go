package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/dustin/go-humanize"
)

// AllowedExtensions covers common raster formats plus container formats
// (heic, ico, svg) that are only rejected once decoding is attempted.
var AllowedExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "bmp": {}, "webp": {},
	"tiff": {}, "tif": {}, "heic": {}, "heif": {}, "ico": {}, "svg": {},
}

type Validator struct {
	limits Limits
}

func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Validate checks presence, count, every extension, then every size, and
// only then reads the bytes. Nothing is read for a rejected batch.
func (v *Validator) Validate(files []*multipart.FileHeader) (*Batch, error) {
	if len(files) == 0 {
		return nil, apperr.Validation(apperr.CodeNoFilesProvided, "", "no images provided")
	}
	if len(files) > v.limits.MaxImages {
		return nil, apperr.Validation(apperr.CodeTooManyFiles, "",
			fmt.Sprintf("maximum %d images allowed, got %d", v.limits.MaxImages, len(files)))
	}

	for _, fh := range files {
		name := strings.TrimSpace(fh.Filename)
		if name == "" {
			return nil, apperr.Validation(apperr.CodeEmptyFilename, "", "file without a name in selection")
		}
		if _, ok := AllowedExtensions[Extension(name)]; !ok {
			return nil, apperr.Validation(apperr.CodeUnsupportedExtension, name,
				fmt.Sprintf("unsupported file type: %s", name))
		}
	}

	for _, fh := range files {
		if fh.Size > v.limits.MaxImageBytes {
			return nil, tooLarge(fh.Filename, v.limits.MaxImageBytes)
		}
	}

	batch := &Batch{Items: make([]Item, 0, len(files))}
	for _, fh := range files {
		data, err := v.read(fh)
		if err != nil {
			return nil, err
		}
		batch.Items = append(batch.Items, Item{Name: fh.Filename, Data: data})
		batch.TotalBytes += int64(len(data))
	}
	return batch, nil
}

// read не доверяет заявленному размеру: читает максимум limit+1 байт.
func (v *Validator) read(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Internal("open upload "+fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, v.limits.MaxImageBytes+1))
	if err != nil {
		return nil, apperr.Internal("read upload "+fh.Filename, err)
	}
	if int64(len(data)) > v.limits.MaxImageBytes {
		return nil, tooLarge(fh.Filename, v.limits.MaxImageBytes)
	}
	return data, nil
}

func tooLarge(name string, limit int64) error {
	return apperr.Validation(apperr.CodeFileTooLarge, name,
		fmt.Sprintf("%s exceeds the %s per-image limit", name, humanize.IBytes(uint64(limit))))
}

// Extension returns the lower-cased extension without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
