package object

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// GetObject returns an object with the attachments the caller may read.
// The display name is recomputed from the visible attachments.
func (s *Service) GetObject(ctx context.Context, id uuid.UUID) (View, error) {
	if _, err := requireActor(ctx, domain.PermObjectsRead); err != nil {
		return View{}, err
	}
	if id == uuid.Nil {
		return View{}, domain.NewValidationError("object_id", "required")
	}

	obj, err := s.objects.GetByID(ctx, id)
	if err != nil {
		return View{}, fmt.Errorf("get object: %w", err)
	}

	s.filterVisible(ctx, obj)

	return s.view(obj), nil
}

// ListObjects returns a filtered, paginated page of objects plus the total
// match count. Field filters are AND-composed; free-text search spans the
// fixed well-known keys across all modules.
func (s *Service) ListObjects(ctx context.Context, filter domain.ObjectFilter) ([]View, int, error) {
	if _, err := requireActor(ctx, domain.PermObjectsRead); err != nil {
		return nil, 0, err
	}

	objs, total, err := s.objects.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list objects: %w", err)
	}

	views := make([]View, 0, len(objs))
	for _, obj := range objs {
		s.filterVisible(ctx, obj)
		views = append(views, s.view(obj))
	}

	return views, total, nil
}
