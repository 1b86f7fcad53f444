package delivery

import (
	"context"
	"io"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/convert"
	"github.com/Vovarama1992/file_changer/internal/upload"
)

type DocumentConverter interface {
	Convert(ctx context.Context, data []byte, filename, from, to string) (*convert.Result, error)
}

// ConvertHandler: однофайловые конверсии через внешние бэкенды.
type ConvertHandler struct {
	svc             DocumentConverter
	maxRequestBytes int64
	production      bool
	log             *logger.ZapLogger
}

func NewConvertHandler(svc DocumentConverter, opts HandlerOptions, log *logger.ZapLogger) *ConvertHandler {
	return &ConvertHandler{
		svc:             svc,
		maxRequestBytes: opts.MaxRequestBytes,
		production:      opts.Production,
		log:             log,
	}
}

func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	form, err := parseMultipart(w, r, h.maxRequestBytes)
	if err != nil {
		writeError(w, h.log, h.production, err)
		return
	}
	defer form.RemoveAll()

	files := form.File["file"]
	if len(files) == 0 {
		writeError(w, h.log, h.production, apperr.Validation(apperr.CodeNoFilesProvided, "", "no file provided"))
		return
	}
	fh := files[0]

	// from можно не передавать: берём из расширения
	from := r.FormValue("from")
	if from == "" {
		from = upload.Extension(fh.Filename)
	}
	to := r.FormValue("to")

	f, err := fh.Open()
	if err != nil {
		writeError(w, h.log, h.production, apperr.Internal("failed to open upload", err))
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		writeError(w, h.log, h.production, apperr.Internal("failed to read upload", err))
		return
	}

	res, err := h.svc.Convert(r.Context(), data, fh.Filename, from, to)
	if err != nil {
		writeError(w, h.log, h.production, err)
		return
	}
	writeAttachment(w, res.Data, res.Filename, res.ContentType)
}
