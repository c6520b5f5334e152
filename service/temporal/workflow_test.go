package temporal

import (
	"errors"
	"testing"

	"github.com/Taksh113/tokenwise-popcat/service/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func newWorkflowTestEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *Activities) {
	t.Helper()

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.SnapshotHolders)
	env.RegisterActivity(activities.RunTrackingPass)

	return env, activities
}

func TestTrackingPassWorkflow_WithRefresh(t *testing.T) {
	env, activities := newWorkflowTestEnv(t)

	env.OnActivity(activities.SnapshotHolders, mock.Anything, mock.Anything).Return(
		&SnapshotHoldersResult{HolderCount: 3, Addresses: []string{"a", "b", "c"}}, nil,
	)
	env.OnActivity(activities.RunTrackingPass, mock.Anything, mock.Anything).Return(
		&RunTrackingPassResult{Stats: tracker.PassStats{Wallets: 3, Written: 5, Duplicates: 2}}, nil,
	)

	env.ExecuteWorkflow(TrackingPassWorkflow, TrackingPassInput{RefreshHolders: true})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TrackingPassResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 3, result.HolderCount)
	assert.Equal(t, 5, result.Stats.Written)
	assert.Equal(t, 2, result.Stats.Duplicates)
	assert.Nil(t, result.Error)

	env.AssertExpectations(t)
}

func TestTrackingPassWorkflow_WithoutRefresh(t *testing.T) {
	env, activities := newWorkflowTestEnv(t)

	env.OnActivity(activities.RunTrackingPass, mock.Anything, mock.Anything).Return(
		&RunTrackingPassResult{Stats: tracker.PassStats{Wallets: 3, Written: 1}}, nil,
	)

	env.ExecuteWorkflow(TrackingPassWorkflow, TrackingPassInput{RefreshHolders: false})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result TrackingPassResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 0, result.HolderCount)
	assert.Equal(t, 1, result.Stats.Written)

	// SnapshotHolders must not run when no refresh was requested.
	env.AssertNotCalled(t, "SnapshotHolders", mock.Anything, mock.Anything)
}

func TestTrackingPassWorkflow_SnapshotFails(t *testing.T) {
	env, activities := newWorkflowTestEnv(t)

	env.OnActivity(activities.SnapshotHolders, mock.Anything, mock.Anything).Return(
		nil, errors.New("rpc unavailable"),
	)

	env.ExecuteWorkflow(TrackingPassWorkflow, TrackingPassInput{RefreshHolders: true})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to snapshot holders")

	env.AssertNotCalled(t, "RunTrackingPass", mock.Anything, mock.Anything)
}

func TestTrackingPassWorkflow_PassFails(t *testing.T) {
	env, activities := newWorkflowTestEnv(t)

	env.OnActivity(activities.RunTrackingPass, mock.Anything, mock.Anything).Return(
		nil, errors.New("holders unreadable"),
	)

	env.ExecuteWorkflow(TrackingPassWorkflow, TrackingPassInput{RefreshHolders: false})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run tracking pass")
}
