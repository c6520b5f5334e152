package temporal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/Taksh113/tokenwise-popcat/service/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTracker struct {
	holders     []db.Holder
	snapshotErr error
	stats       tracker.PassStats
	passErr     error
}

func (m *mockTracker) SnapshotHolders(ctx context.Context) ([]db.Holder, error) {
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	return m.holders, nil
}

func (m *mockTracker) RunPass(ctx context.Context) (tracker.PassStats, error) {
	if m.passErr != nil {
		return tracker.PassStats{}, m.passErr
	}
	return m.stats, nil
}

func newTestActivities(mt *mockTracker) *Activities {
	return NewActivities(mt, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSnapshotHoldersActivity(t *testing.T) {
	activities := newTestActivities(&mockTracker{
		holders: []db.Holder{
			{Address: "addr-1", Balance: 100},
			{Address: "addr-2", Balance: 50},
		},
	})

	result, err := activities.SnapshotHolders(context.Background(), SnapshotHoldersInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.HolderCount)
	assert.Equal(t, []string{"addr-1", "addr-2"}, result.Addresses)
}

func TestSnapshotHoldersActivity_Error(t *testing.T) {
	activities := newTestActivities(&mockTracker{snapshotErr: errors.New("rpc unavailable")})

	_, err := activities.SnapshotHolders(context.Background(), SnapshotHoldersInput{})
	assert.Error(t, err)
}

func TestRunTrackingPassActivity(t *testing.T) {
	activities := newTestActivities(&mockTracker{
		stats: tracker.PassStats{Wallets: 4, Written: 7, Duplicates: 1},
	})

	result, err := activities.RunTrackingPass(context.Background(), RunTrackingPassInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Stats.Wallets)
	assert.Equal(t, 7, result.Stats.Written)
}

func TestRunTrackingPassActivity_Error(t *testing.T) {
	activities := newTestActivities(&mockTracker{passErr: errors.New("holders unreadable")})

	_, err := activities.RunTrackingPass(context.Background(), RunTrackingPassInput{})
	assert.Error(t, err)
}
