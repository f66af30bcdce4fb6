package scene

import (
	"context"
	"log/slog"
	"sync"
)

type Result struct {
	Name  string
	Asset *Asset
	Err   error
}

// Loader resolves assets in the background. Results queue on a channel
// until the frame driver drains them, so scene state only changes at a
// frame boundary. Failed loads are logged and never retried.
type Loader struct {
	source  Source
	results chan Result
	wg      sync.WaitGroup
}

func NewLoader(source Source, buffer int) *Loader {
	if buffer < 1 {
		buffer = 1
	}
	return &Loader{
		source:  source,
		results: make(chan Result, buffer),
	}
}

func (l *Loader) Load(ctx context.Context, name string) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		asset, err := l.source.Resolve(ctx, name)
		if err != nil {
			slog.Error("Failed to load asset", "asset", name, "error", err)
		} else {
			slog.Debug("Asset resolved", "asset", name, "kind", asset.Kind(), "obstacles", len(asset.Obstacles))
		}
		select {
		case l.results <- Result{Name: name, Asset: asset, Err: err}:
		case <-ctx.Done():
		}
	}()
}

// Drain returns every result that has arrived so far without blocking.
func (l *Loader) Drain() []Result {
	var out []Result
	for {
		select {
		case r := <-l.results:
			out = append(out, r)
		default:
			return out
		}
	}
}

// Wait blocks until every started load has delivered or given up.
func (l *Loader) Wait() {
	l.wg.Wait()
}
