//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/Gunvolt24/spot_drain/internal/queue/postgres"
	"github.com/Gunvolt24/spot_drain/internal/testutil"
)

func TestQueue_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, stop, err := testutil.StartPostgresTC(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stop(context.Background()) })

	require.NoError(t, postgres.Migrate(ctx, pg.Pool))
	// повторный прогон миграций — no-op
	require.NoError(t, postgres.Migrate(ctx, pg.Pool))

	q := postgres.New(pg.Pool, postgres.Options{Name: "itest", Visibility: 2 * time.Second})
	other := postgres.New(pg.Pool, postgres.Options{Name: "other"})

	for _, b := range []string{"m1", "m2", "m3"} {
		_, err := q.Send(ctx, []byte(b))
		require.NoError(t, err)
	}
	_, err = other.Send(ctx, []byte("foreign"))
	require.NoError(t, err)

	t.Run("lease and delete", func(t *testing.T) {
		msgs, err := q.Receive(ctx, 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		require.Equal(t, "m1", string(msgs[0].Body))
		require.Equal(t, 1, msgs[0].DequeueCount)

		// арендованные невидимы, чужая очередь не смешивается
		rest, err := q.Receive(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		require.Equal(t, "m3", string(rest[0].Body))

		require.NoError(t, q.Delete(ctx, msgs[0].ID, msgs[0].Receipt))
		require.True(t, errors.Is(q.Delete(ctx, msgs[0].ID, msgs[0].Receipt), queue.ErrNotFound))
		require.True(t, errors.Is(q.Delete(ctx, msgs[1].ID, "not-a-uuid"), queue.ErrNotFound))
	})

	t.Run("lease expiry redelivers", func(t *testing.T) {
		time.Sleep(2500 * time.Millisecond)

		msgs, err := q.Receive(ctx, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		for _, m := range msgs {
			require.Equal(t, 2, m.DequeueCount)
			require.NoError(t, q.Delete(ctx, m.ID, m.Receipt))
		}

		empty, err := q.Receive(ctx, 10)
		require.NoError(t, err)
		require.Empty(t, empty)
	})
}
