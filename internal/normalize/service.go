package normalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Vovarama1992/file_changer/internal/config"
	"github.com/Vovarama1992/file_changer/internal/upload"
)

// Service runs a Processor over a batch either one item at a time or on a
// bounded pool. In pooled mode up to workers decoded images live at once;
// sequential mode never holds more than one.
type Service struct {
	proc    Processor
	mode    string
	workers int
	log     *zap.Logger
}

func NewService(proc Processor, mode string, workers int, log *zap.Logger) (*Service, error) {
	switch mode {
	case config.ModeSequential:
		workers = 1
	case config.ModePooled:
		if workers < 1 {
			return nil, fmt.Errorf("pooled normalizer needs at least one worker, got %d", workers)
		}
	default:
		return nil, fmt.Errorf("unknown normalizer mode %q", mode)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{proc: proc, mode: mode, workers: workers, log: log}, nil
}

func (s *Service) Mode() string {
	return s.mode
}

// Normalize returns one Image per item in input order, or the first failure.
// Nothing produced before a failure is returned.
func (s *Service) Normalize(ctx context.Context, items []upload.Item) ([]Image, error) {
	if s.mode == config.ModeSequential || len(items) == 1 {
		return s.sequential(ctx, items)
	}
	return s.pooled(ctx, items)
}

func (s *Service) sequential(ctx context.Context, items []upload.Item) ([]Image, error) {
	out := make([]Image, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := s.proc.Process(item)
		if err != nil {
			s.log.Warn("normalize failed", zap.String("file", item.Name), zap.Error(err))
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func (s *Service) pooled(ctx context.Context, items []upload.Item) ([]Image, error) {
	out := make([]Image, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range items {
		// после первой ошибки новые задачи не запускаем
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := s.proc.Process(items[i])
			if err != nil {
				s.log.Warn("normalize failed", zap.String("file", items[i].Name), zap.Error(err))
				return err
			}
			out[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// отмена родительского контекста могла оборвать цикл до запуска задач
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
