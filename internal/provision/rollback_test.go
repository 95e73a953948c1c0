package provision

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/tierctl/internal/metrics"
	"github.com/vietdv277/tierctl/pkg/types"
)

// liveDeleter fails any delete attempted on a dead context
type liveDeleter struct {
	deleted  []string
	deadline time.Time
}

func (d *liveDeleter) DeleteResource(ctx context.Context, r types.Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.deadline, _ = ctx.Deadline()
	d.deleted = append(d.deleted, r.Name)
	return nil
}

func TestRollbackSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resources := []types.Resource{
		{Kind: types.KindSecurityGroup, Name: "shop-fe-sg", ID: "sg-1", Created: true},
		{Kind: types.KindRole, Name: "ops", ID: "role-0"},
		{Kind: types.KindInstance, Name: "shop-mongo", ID: "i-1", Created: true},
	}

	d := &liveDeleter{}
	deleted, err := Rollback(ctx, d, resources, zerolog.Nop(), metrics.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-mongo", "shop-fe-sg"}, d.deleted)
	assert.Len(t, deleted, 2)
	assert.False(t, d.deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(RollbackTimeout), d.deadline, time.Minute)
}

func TestRollbackTimeout(t *testing.T) {
	old := RollbackTimeout
	RollbackTimeout = time.Nanosecond
	t.Cleanup(func() { RollbackTimeout = old })

	resources := []types.Resource{{Kind: types.KindRole, Name: "shop-ec2-role", ID: "role-1", Created: true}}

	d := &liveDeleter{}
	deleted, err := Rollback(context.Background(), d, resources, zerolog.Nop(), metrics.New())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, deleted)
}
