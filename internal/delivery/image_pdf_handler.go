package delivery

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/imagepdf"
)

const (
	imagesField = "images"
	// остаток сверх этого multipart сбрасывает во временные файлы
	multipartMemory = 32 << 20
)

type ImagePDFHandler struct {
	svc             imagepdf.Service
	maxRequestBytes int64
	direct          bool
	production      bool
	log             *logger.ZapLogger
}

type HandlerOptions struct {
	MaxRequestBytes int64
	Direct          bool
	Production      bool
}

func NewImagePDFHandler(svc imagepdf.Service, opts HandlerOptions, log *logger.ZapLogger) *ImagePDFHandler {
	return &ImagePDFHandler{
		svc:             svc,
		maxRequestBytes: opts.MaxRequestBytes,
		direct:          opts.Direct,
		production:      opts.Production,
		log:             log,
	}
}

type convertResponse struct {
	Success bool `json:"success"`
	imagepdf.Receipt
}

// Convert принимает multipart с полем images.
func (h *ImagePDFHandler) Convert(w http.ResponseWriter, r *http.Request) {
	form, err := parseMultipart(w, r, h.maxRequestBytes)
	if err != nil {
		writeError(w, h.log, h.production, err)
		return
	}
	defer form.RemoveAll()

	files := form.File[imagesField]
	// part с filename="" multipart кладёт в Value, а не в File
	if len(files) == 0 && len(form.Value[imagesField]) > 0 {
		writeError(w, h.log, h.production,
			apperr.Validation(apperr.CodeEmptyFilename, "", "file without a name in selection"))
		return
	}

	if h.direct {
		art, err := h.svc.Build(r.Context(), files)
		if err != nil {
			writeError(w, h.log, h.production, err)
			return
		}
		writeAttachment(w, art.PDF, art.Filename, "application/pdf")
		return
	}

	receipt, err := h.svc.Convert(r.Context(), files)
	if err != nil {
		writeError(w, h.log, h.production, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{Success: true, Receipt: *receipt})
}

// Download отдаёт PDF один раз: после этого хендл больше не существует.
func (h *ImagePDFHandler) Download(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Redeem(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, h.log, h.production, err)
		return
	}
	writeAttachment(w, sess.Data, sess.Filename, "application/pdf")
}

func (h *ImagePDFHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Discard(chi.URLParam(r, "sessionId")); err != nil {
		writeError(w, h.log, h.production, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// parseMultipart режет запрос по общему потолку до разбора тела.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) (*multipart.Form, error) {
	if limit > 0 {
		if r.ContentLength > limit {
			return nil, apperr.PayloadTooLarge(humanize.IBytes(uint64(limit)))
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return nil, apperr.PayloadTooLarge(humanize.IBytes(uint64(tooBig.Limit)))
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return nil, apperr.Validation(apperr.CodeNoFilesProvided, "", "no files provided")
		default:
			return nil, apperr.Validation(apperr.CodeNoFilesProvided, "", "malformed multipart body: "+err.Error())
		}
	}
	return r.MultipartForm, nil
}

func writeAttachment(w http.ResponseWriter, data []byte, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
