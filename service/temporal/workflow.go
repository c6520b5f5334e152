package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// TrackingPassWorkflow is the Temporal workflow that runs one full tracking
// pass over the top holders. It is triggered by a Temporal schedule at a
// configured interval.
//
// The workflow performs these steps:
// 1. Optionally refresh the top holder snapshot (SnapshotHolders activity)
// 2. Walk every holder and record movements (RunTrackingPass activity)
// 3. Return a summary of what was recorded
func TrackingPassWorkflow(ctx workflow.Context, input TrackingPassInput) (*TrackingPassResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("TrackingPassWorkflow started", "refresh_holders", input.RefreshHolders)

	result := &TrackingPassResult{
		PassTime: workflow.Now(ctx),
	}

	snapshotOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}

	if input.RefreshHolders {
		var snapshot *SnapshotHoldersResult
		snapCtx := workflow.WithActivityOptions(ctx, snapshotOptions)
		err := workflow.ExecuteActivity(snapCtx, a.SnapshotHolders, SnapshotHoldersInput{}).Get(snapCtx, &snapshot)
		if err != nil {
			errMsg := fmt.Sprintf("failed to snapshot holders: %v", err)
			result.Error = &errMsg
			return result, fmt.Errorf("failed to snapshot holders: %w", err)
		}
		result.HolderCount = snapshot.HolderCount
		logger.Info("snapshotted holders", "count", snapshot.HolderCount)
	}

	// The pass paces itself against public RPC rate limits and can run long.
	// One attempt per scheduled run; the next schedule fire picks up where
	// the ledgers left off.
	passOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    5 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	passCtx := workflow.WithActivityOptions(ctx, passOptions)

	var pass *RunTrackingPassResult
	err := workflow.ExecuteActivity(passCtx, a.RunTrackingPass, RunTrackingPassInput{}).Get(passCtx, &pass)
	if err != nil {
		errMsg := fmt.Sprintf("failed to run tracking pass: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to run tracking pass: %w", err)
	}

	result.Stats = pass.Stats

	logger.Info("TrackingPassWorkflow completed successfully",
		"wallets", pass.Stats.Wallets,
		"written", pass.Stats.Written,
		"duplicates", pass.Stats.Duplicates,
		"abandoned", pass.Stats.Abandoned,
	)

	return result, nil
}
