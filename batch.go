package gospatial

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EvaluateBatch calls f once per input on up to workers goroutines, each
// owning a clone of f. inputs[i] holds the argument groups of call i and
// the result slices are copies in the same order. workers <= 0 means
// GOMAXPROCS.
func EvaluateBatch(ctx context.Context, f *CompiledFunction, inputs [][][]float64, workers int) ([][]float64, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}
	for _, in := range inputs {
		if err := f.checkArgs(in); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	L().Debug("batch evaluation started",
		zap.String("name", f.name),
		zap.Int("inputs", len(inputs)),
		zap.Int("workers", workers),
	)

	pool := make(chan *CompiledFunction, workers)
	for i := 0; i < workers; i++ {
		pool <- f.Clone()
	}

	out := make([][]float64, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		if gctx.Err() != nil {
			break
		}
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := <-pool
			defer func() { pool <- c }()
			out[i] = append([]float64(nil), c.FastCall(in...)...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	L().Debug("batch evaluation finished",
		zap.String("name", f.name),
		zap.Int("inputs", len(inputs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
