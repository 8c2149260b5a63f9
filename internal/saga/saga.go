// Package saga runs multi-resource operations as an ordered list of
// steps with compensating actions. There is no distributed transaction
// behind it: compensation is best effort per resource.
package saga

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Step is one unit of a saga. Compensate undoes a completed Run and may
// be nil for steps with nothing to undo (idempotent upserts, final
// steps). Compensations must tolerate being called after a partial
// failure of the step they undo.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

type Runner struct {
	log zerolog.Logger
}

func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log}
}

// Execute runs steps in order. On the first failure it compensates every
// previously completed step in reverse order and returns the failing
// step's error. Compensation failures are logged and swallowed; each
// compensation is attempted regardless of whether earlier ones
// succeeded.
func (r *Runner) Execute(ctx context.Context, name string, steps []Step) error {
	completed := make([]Step, 0, len(steps))

	for _, step := range steps {
		if err := step.Run(ctx); err != nil {
			r.compensate(ctx, name, completed)
			return fmt.Errorf("%s: %s: %w", name, step.Name, err)
		}
		completed = append(completed, step)
	}

	return nil
}

func (r *Runner) compensate(ctx context.Context, name string, completed []Step) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			r.log.Error().
				Err(err).
				Str("saga", name).
				Str("step", step.Name).
				Msg("compensation failed")
		}
	}
}
