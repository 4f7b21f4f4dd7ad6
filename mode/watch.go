package mode

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/khaledhikmat/df-go/pipeline"
)

// Watch runs the monitor and the manager side by side. If either fails the
// other one is cancelled.
func Watch(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	g, ctx := errgroup.WithContext(canxCtx)

	g.Go(func() error {
		return Manager(ctx, svcs, args)
	})

	g.Go(func() error {
		return Monitor(ctx, svcs, args)
	})

	return g.Wait()
}
