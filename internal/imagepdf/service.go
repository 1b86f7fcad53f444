package imagepdf

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/metrics"
	"github.com/Vovarama1992/file_changer/internal/normalize"
	"github.com/Vovarama1992/file_changer/internal/pdf"
	"github.com/Vovarama1992/file_changer/internal/session"
	"github.com/Vovarama1992/file_changer/internal/upload"
)

type service struct {
	validator  upload.BatchValidator
	normalizer normalize.Normalizer
	assembler  pdf.Assembler
	store      SessionStore
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewService(
	validator upload.BatchValidator,
	normalizer normalize.Normalizer,
	assembler pdf.Assembler,
	store SessionStore,
	m *metrics.Metrics,
	log *zap.Logger,
) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		validator:  validator,
		normalizer: normalizer,
		assembler:  assembler,
		store:      store,
		metrics:    m,
		log:        log,
	}
}

// Build runs validate → normalize → assemble. Every buffer it allocates is
// local to the call; on failure nothing outlives it.
func (s *service) Build(ctx context.Context, files []*multipart.FileHeader) (*Artifact, error) {
	log := s.log.With(zap.String("batch_id", uuid.NewString()))
	art, err := s.build(ctx, log, files)
	if err != nil {
		return nil, err
	}
	s.metrics.Conversion("success")
	return art, nil
}

// build не пишет итоговый outcome: успех засчитывает вызывающий.
func (s *service) build(ctx context.Context, log *zap.Logger, files []*multipart.FileHeader) (*Artifact, error) {
	batch, err := s.validator.Validate(files)
	if err != nil {
		s.fail(log, "validate", err)
		return nil, err
	}
	count := batch.Count()
	log.Info("batch accepted",
		zap.Int("images", count),
		zap.String("size", humanize.IBytes(uint64(batch.TotalBytes))),
	)

	start := time.Now()
	images, err := s.normalizer.Normalize(ctx, batch.Items)
	s.metrics.ObserveStage("normalize", time.Since(start))
	if err != nil {
		s.fail(log, "normalize", err)
		return nil, err
	}
	start = time.Now()
	data, err := s.assembler.Assemble(ctx, images)
	s.metrics.ObserveStage("assemble", time.Since(start))
	if err != nil {
		s.fail(log, "assemble", err)
		return nil, err
	}

	log.Info("pdf assembled",
		zap.Int("pages", count),
		zap.String("size", humanize.IBytes(uint64(len(data)))),
		zap.Duration("took", time.Since(start)),
	)
	return &Artifact{PDF: data, Filename: OutputFilename, ImageCount: count}, nil
}

// Convert builds the PDF and hands it to the session store. After Put the
// store is the only owner of the bytes.
func (s *service) Convert(ctx context.Context, files []*multipart.FileHeader) (*Receipt, error) {
	log := s.log.With(zap.String("batch_id", uuid.NewString()))
	art, err := s.build(ctx, log, files)
	if err != nil {
		return nil, err
	}

	handle, err := s.store.Put(art.PDF, art.Filename)
	if err != nil {
		s.fail(log, "store", err)
		return nil, err
	}
	s.metrics.Conversion("success")
	return &Receipt{
		SessionID:  handle,
		Filename:   art.Filename,
		Size:       len(art.PDF),
		ImageCount: art.ImageCount,
	}, nil
}

// Redeem is one-shot: the session is gone once this returns successfully.
func (s *service) Redeem(handle string) (session.Session, error) {
	sess, err := s.store.Take(handle)
	if err != nil {
		s.metrics.Download("not_found")
		return session.Session{}, err
	}
	s.metrics.Download("ok")
	return sess, nil
}

func (s *service) Discard(handle string) error {
	return s.store.Delete(handle)
}

func (s *service) ActiveSessions() int {
	return s.store.Len()
}

func (s *service) fail(log *zap.Logger, stage string, err error) {
	e := apperr.From(err)
	s.metrics.Conversion(outcome(e))

	fields := []zap.Field{zap.String("stage", stage), zap.String("code", e.Code), zap.Error(err)}
	if e.File != "" {
		fields = append(fields, zap.String("file", e.File))
	}
	if e.Kind == apperr.KindInternal || e.Internal {
		log.Error("image-to-pdf failed", fields...)
		return
	}
	log.Warn("image-to-pdf rejected", fields...)
}

func outcome(e *apperr.Error) string {
	switch e.Kind {
	case apperr.KindValidation:
		return "validation"
	case apperr.KindProcessing:
		return "processing"
	case apperr.KindAssemblyTimeout:
		return "timeout"
	default:
		return "error"
	}
}
