package temporal

import (
	"context"
	"log/slog"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/Taksh113/tokenwise-popcat/service/tracker"
)

// TrackingPassInput contains the input parameters for a tracking pass.
type TrackingPassInput struct {
	// RefreshHolders re-snapshots the top holder set before walking wallets.
	RefreshHolders bool `json:"refresh_holders"`
}

// TrackingPassResult contains the result of a full tracking pass.
type TrackingPassResult struct {
	HolderCount int               `json:"holder_count"`
	Stats       tracker.PassStats `json:"stats"`
	PassTime    time.Time         `json:"pass_time"`
	Error       *string           `json:"error,omitempty"`
}

// SnapshotHoldersInput contains parameters for the SnapshotHolders activity.
type SnapshotHoldersInput struct{}

// SnapshotHoldersResult contains the result of the SnapshotHolders activity.
type SnapshotHoldersResult struct {
	HolderCount int      `json:"holder_count"`
	Addresses   []string `json:"addresses"`
}

// RunTrackingPassInput contains parameters for the RunTrackingPass activity.
type RunTrackingPassInput struct{}

// RunTrackingPassResult contains the result of the RunTrackingPass activity.
type RunTrackingPassResult struct {
	Stats tracker.PassStats `json:"stats"`
}

// TrackerInterface defines the tracking operations needed by activities.
// This allows for easy mocking in tests.
type TrackerInterface interface {
	SnapshotHolders(ctx context.Context) ([]db.Holder, error)
	RunPass(ctx context.Context) (tracker.PassStats, error)
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit.
type Activities struct {
	tracker TrackerInterface
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
func NewActivities(t TrackerInterface, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		tracker: t,
		logger:  logger,
	}
}

// SnapshotHolders refreshes the tracked holder set from the chain.
func (a *Activities) SnapshotHolders(ctx context.Context, input SnapshotHoldersInput) (*SnapshotHoldersResult, error) {
	start := time.Now()

	holders, err := a.tracker.SnapshotHolders(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "holder snapshot failed", "error", err)
		return nil, err
	}

	addresses := make([]string, 0, len(holders))
	for _, h := range holders {
		addresses = append(addresses, h.Address)
	}

	a.logger.InfoContext(ctx, "holder snapshot activity complete",
		"count", len(addresses),
		"duration", time.Since(start).String(),
	)

	return &SnapshotHoldersResult{
		HolderCount: len(addresses),
		Addresses:   addresses,
	}, nil
}

// RunTrackingPass walks every tracked holder and records their movements.
func (a *Activities) RunTrackingPass(ctx context.Context, input RunTrackingPassInput) (*RunTrackingPassResult, error) {
	start := time.Now()

	stats, err := a.tracker.RunPass(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "tracking pass failed", "error", err)
		return nil, err
	}

	a.logger.InfoContext(ctx, "tracking pass activity complete",
		"wallets", stats.Wallets,
		"written", stats.Written,
		"duplicates", stats.Duplicates,
		"duration", time.Since(start).String(),
	)

	return &RunTrackingPassResult{Stats: stats}, nil
}
