package provision

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vietdv277/tierctl/internal/metrics"
	"github.com/vietdv277/tierctl/pkg/types"
)

// Deleter removes one recorded resource
type Deleter interface {
	DeleteResource(ctx context.Context, r types.Resource) error
}

// RollbackTimeout bounds a whole compensation pass
var RollbackTimeout = 15 * time.Minute

// Rollback deletes resources in reverse order, skipping any that were
// reused rather than created. Every resource is attempted; failures are
// joined. It returns the resources that were deleted.
//
// Cancelling ctx does not stop the deletes, so an interrupted run still
// cleans up after itself. Only RollbackTimeout does.
func Rollback(ctx context.Context, d Deleter, resources []types.Resource, log zerolog.Logger, m *metrics.Metrics) ([]types.Resource, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
	defer cancel()

	var deleted []types.Resource
	var errs []error

	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		if !r.Created {
			continue
		}

		if err := d.DeleteResource(ctx, r); err != nil {
			log.Error().Err(err).Str("kind", string(r.Kind)).Str("name", r.Name).Msg("compensation failed")
			m.ObserveOutcome(r.Kind, metrics.OutcomeFailed)
			errs = append(errs, err)
			continue
		}

		m.ObserveOutcome(r.Kind, metrics.OutcomeDeleted)
		deleted = append(deleted, r)
	}

	return deleted, errors.Join(errs...)
}
