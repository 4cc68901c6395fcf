package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "fleetcomply/pkg/domain"
)

func TestTenantScoping(t *testing.T) {
	t.Run("absent tenant yields zero value", func(t *testing.T) {
		ctx := context.Background()
		assert.True(t, TenantID(ctx).IsNil())
		assert.False(t, HasTenant(ctx))
	})

	t.Run("tenant travels with the context", func(t *testing.T) {
		tenantID := id.NewTenantID()
		ctx := WithTenantID(context.Background(), tenantID)
		assert.Equal(t, tenantID, TenantID(ctx))
		assert.True(t, HasTenant(ctx))
	})

	t.Run("derived contexts do not leak back to the parent", func(t *testing.T) {
		parent := context.Background()
		_ = WithTenantID(parent, id.NewTenantID())
		assert.False(t, HasTenant(parent))
	})
}

func TestActorAndRequestMetadata(t *testing.T) {
	actorID := id.NewUserID()
	ctx := WithActorID(context.Background(), actorID)
	ctx = WithRequestID(ctx, "req-42")

	assert.Equal(t, actorID, ActorID(ctx))
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.True(t, ActorID(context.Background()).IsNil())
}

func TestNow(t *testing.T) {
	t.Run("pinned clock wins", func(t *testing.T) {
		fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		ctx := WithTime(context.Background(), fixed)
		assert.Equal(t, fixed, Now(ctx))
	})

	t.Run("falls back to wall clock", func(t *testing.T) {
		before := time.Now()
		got := Now(context.Background())
		assert.False(t, got.Before(before.Add(-time.Second)))
	})
}

func TestBulkImport(t *testing.T) {
	assert.False(t, BulkImport(context.Background()))
	assert.True(t, BulkImport(WithBulkImport(context.Background())))
}
