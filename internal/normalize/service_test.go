package normalize

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vovarama1992/file_changer/internal/apperr"
	"github.com/Vovarama1992/file_changer/internal/config"
	"github.com/Vovarama1992/file_changer/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor echoes item data back, sleeping longer for earlier items so
// pooled completion order is the reverse of submission order.
type stubProcessor struct {
	failOn   string
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	delay    func(item upload.Item) time.Duration
}

func (p *stubProcessor) Process(item upload.Item) (Image, error) {
	p.calls.Add(1)
	cur := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if cur <= old || p.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	if p.delay != nil {
		time.Sleep(p.delay(item))
	}
	if item.Name == p.failOn {
		return Image{}, apperr.Processing(item.Name, fmt.Errorf("corrupt"))
	}
	return Image{Name: item.Name, Data: item.Data}, nil
}

func items(n int) []upload.Item {
	out := make([]upload.Item, n)
	for i := range out {
		out[i] = upload.Item{Name: fmt.Sprintf("img-%02d.png", i), Data: []byte{byte(i)}}
	}
	return out
}

func reverseDelay(n int) func(upload.Item) time.Duration {
	return func(item upload.Item) time.Duration {
		return time.Duration(n-int(item.Data[0])) * time.Millisecond
	}
}

func TestNewServiceValidatesMode(t *testing.T) {
	_, err := NewService(&stubProcessor{}, "parallel", 2, nil)
	assert.Error(t, err)
	_, err = NewService(&stubProcessor{}, config.ModePooled, 0, nil)
	assert.Error(t, err)

	svc, err := NewService(&stubProcessor{}, config.ModeSequential, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ModeSequential, svc.Mode())
}

func TestNormalizePreservesOrder(t *testing.T) {
	for _, mode := range []string{config.ModeSequential, config.ModePooled} {
		t.Run(mode, func(t *testing.T) {
			proc := &stubProcessor{delay: reverseDelay(12)}
			svc, err := NewService(proc, mode, 4, nil)
			require.NoError(t, err)

			out, err := svc.Normalize(context.Background(), items(12))
			require.NoError(t, err)
			require.Len(t, out, 12)
			for i, img := range out {
				assert.Equal(t, fmt.Sprintf("img-%02d.png", i), img.Name)
				assert.Equal(t, []byte{byte(i)}, img.Data)
			}
		})
	}
}

func TestNormalizeBoundsConcurrency(t *testing.T) {
	cases := map[string]struct {
		mode    string
		workers int
		want    int32
	}{
		"sequential": {config.ModeSequential, 8, 1},
		"pooled":     {config.ModePooled, 3, 3},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			proc := &stubProcessor{delay: func(upload.Item) time.Duration { return 5 * time.Millisecond }}
			svc, err := NewService(proc, tc.mode, tc.workers, nil)
			require.NoError(t, err)

			_, err = svc.Normalize(context.Background(), items(20))
			require.NoError(t, err)
			assert.LessOrEqual(t, proc.peak.Load(), tc.want)
			assert.Equal(t, int32(20), proc.calls.Load())
		})
	}
}

func TestNormalizeFailsWholeBatch(t *testing.T) {
	for _, mode := range []string{config.ModeSequential, config.ModePooled} {
		t.Run(mode, func(t *testing.T) {
			proc := &stubProcessor{failOn: "img-03.png"}
			svc, err := NewService(proc, mode, 2, nil)
			require.NoError(t, err)

			out, err := svc.Normalize(context.Background(), items(8))
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, "img-03.png", apperr.From(err).File)
		})
	}
}

func TestNormalizeSequentialStopsAtFirstFailure(t *testing.T) {
	proc := &stubProcessor{failOn: "img-01.png"}
	svc, err := NewService(proc, config.ModeSequential, 0, nil)
	require.NoError(t, err)

	_, err = svc.Normalize(context.Background(), items(5))
	require.Error(t, err)
	assert.Equal(t, int32(2), proc.calls.Load())
}

func TestNormalizeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc, err := NewService(&stubProcessor{}, config.ModePooled, 2, nil)
	require.NoError(t, err)

	_, err = svc.Normalize(ctx, items(4))
	assert.ErrorIs(t, err, context.Canceled)
}
