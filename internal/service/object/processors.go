package object

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/processor"
)

// RunProcessors executes every eligible processor against the object and
// returns their results. Processors run concurrently under a shared timeout;
// a failing or hanging processor yields a failed result without affecting
// its siblings. Visibility filtering applies before eligibility, a module
// the caller cannot read cannot feed a processor either.
func (s *Service) RunProcessors(ctx context.Context, objectID uuid.UUID) ([]processor.Result, error) {
	actor, err := requireActor(ctx, domain.PermObjectsRead)
	if err != nil {
		return nil, err
	}
	if objectID == uuid.Nil {
		return nil, domain.NewValidationError("object_id", "required")
	}

	obj, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	s.filterVisible(ctx, obj)

	pc := processor.NewContext(actor, obj)

	runCtx := ctx
	if s.processorTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.processorTimeout)
		defer cancel()
	}

	results := s.processors.Run(runCtx, pc)

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	s.log.InfoContext(ctx, "processors executed",
		slog.String("object_id", objectID.String()),
		slog.Int("total", len(results)),
		slog.Int("failed", failed),
	)

	return results, nil
}

// EligibleProcessors returns the specs of processors whose required modules
// the object carries, without running anything.
func (s *Service) EligibleProcessors(ctx context.Context, objectID uuid.UUID) ([]processor.Spec, error) {
	if _, err := requireActor(ctx, domain.PermObjectsRead); err != nil {
		return nil, err
	}
	if objectID == uuid.Nil {
		return nil, domain.NewValidationError("object_id", "required")
	}

	obj, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	s.filterVisible(ctx, obj)

	attached := make(map[string]domain.Record, len(obj.Modules))
	for _, m := range obj.Modules {
		attached[m.ModuleName] = m.Data
	}

	procs := s.processors.EligibleFor(attached)
	specs := make([]processor.Spec, 0, len(procs))
	for _, p := range procs {
		specs = append(specs, p.Spec())
	}

	return specs, nil
}
