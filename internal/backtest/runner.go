package backtest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/ptm"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// Job is one (DataInstance, Ptm) pair. DataInstances may be shared between
// jobs; runs only read them.
type Job struct {
	ID     string
	DI     *di.DataInstance
	Ptm    ptm.Ptm
	Config Config
}

// Result is the outcome of one Job.
type Result struct {
	JobID   string
	DI      string
	Ptm     string
	Res     *PnlRes
	Summary Summary
}

// OnProgressCallback is called after each finished job.
type OnProgressCallback func(done, total int)

// RunMany backtests jobs on at most workers goroutines. Results keep the
// order of jobs. Jobs without an ID get a random one. The first failing job
// cancels the rest.
func RunMany(ctx context.Context, jobs []Job, workers int, onProgress OnProgressCallback) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu   sync.Mutex
		done int
	)

	for i := range jobs {
		job := jobs[i]
		if job.ID == "" {
			job.ID = uuid.New().String()
		}

		g.Go(func() error {
			res, err := Run(ctx, job.DI, job.Ptm, job.Config)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeBacktestFailed, err, "job %s", job.ID)
			}

			results[i] = Result{
				JobID:   job.ID,
				DI:      job.DI.String(),
				Ptm:     job.Ptm.String(),
				Res:     res,
				Summary: Summarize(res),
			}

			if onProgress != nil {
				mu.Lock()
				done++
				onProgress(done, len(jobs))
				mu.Unlock()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
