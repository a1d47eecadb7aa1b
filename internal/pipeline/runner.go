package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner materializes assets in dependency order, independent assets of a
// level in parallel. A failing asset aborts the run; later levels are not
// started.
type Runner struct {
	reg *Registry
	env *Env
}

func NewRunner(reg *Registry, env *Env) *Runner {
	return &Runner{reg: reg, env: env}
}

// Run materializes the named assets plus their transitive dependencies.
// An empty selection materializes everything.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	selection, err := r.reg.Closure(names...)
	if err != nil {
		return err
	}
	levels, err := r.reg.Levels(selection)
	if err != nil {
		return err
	}

	started := time.Now()
	r.env.Log.Info().Int("assets", len(selection)).Int("levels", len(levels)).
		Msg("starting pipeline run")

	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		for _, name := range level {
			asset, _ := r.reg.Get(name)
			g.Go(func() error {
				assetStart := time.Now()
				res, err := asset.Run(gctx, r.env)
				if err != nil {
					return fmt.Errorf("materialize %s: %w", asset.Name, err)
				}
				r.env.Log.Info().
					Str("asset", asset.Name).
					Str("path", res.PrimaryPath).
					Dur("took", time.Since(assetStart)).
					Msg("asset materialized")
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	r.env.Log.Info().Dur("took", time.Since(started)).Msg("pipeline run completed")
	return nil
}
