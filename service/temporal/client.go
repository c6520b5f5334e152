package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// trackingScheduleID is the Temporal schedule ID for the recurring tracking
// pass. There is exactly one schedule per deployment.
const trackingScheduleID = "tracking-pass"

// Client is a production implementation of schedule management that talks to
// Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// CreateTrackingSchedule creates the recurring schedule that triggers the
// TrackingPassWorkflow on the given interval.
func (c *Client) CreateTrackingSchedule(ctx context.Context, interval time.Duration, refreshHolders bool) error {
	c.logger.Debug("creating tracking schedule",
		"schedule_id", trackingScheduleID,
		"interval", interval,
	)

	scheduleSpec := client.ScheduleSpec{
		Intervals: []client.ScheduleIntervalSpec{
			{Every: interval},
		},
	}

	workflowAction := client.ScheduleWorkflowAction{
		ID:        "tracking-pass-run",
		Workflow:  "TrackingPassWorkflow",
		TaskQueue: c.taskQueue,
		Args: []interface{}{TrackingPassInput{
			RefreshHolders: refreshHolders,
		}},
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID:     trackingScheduleID,
		Spec:   scheduleSpec,
		Action: &workflowAction,
		Memo: map[string]interface{}{
			"created_by": "tokenwise",
		},
		// A pass can outlast its interval on a slow RPC node; never stack
		// overlapping passes.
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"schedule_id", trackingScheduleID,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", trackingScheduleID, err)
	}

	c.logger.Info("tracking schedule created",
		"schedule_id", trackingScheduleID,
		"interval", interval,
	)

	return nil
}

// DeleteTrackingSchedule deletes the recurring tracking schedule.
func (c *Client) DeleteTrackingSchedule(ctx context.Context) error {
	handle := c.client.ScheduleClient().GetHandle(ctx, trackingScheduleID)
	if err := handle.Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"schedule_id", trackingScheduleID,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", trackingScheduleID, err)
	}

	c.logger.Info("tracking schedule deleted", "schedule_id", trackingScheduleID)
	return nil
}

// TriggerTrackingPass starts one TrackingPassWorkflow run immediately.
func (c *Client) TriggerTrackingPass(ctx context.Context, refreshHolders bool) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("tracking-pass-manual-%d", time.Now().Unix()),
		TaskQueue: c.taskQueue,
	}

	run, err := c.client.ExecuteWorkflow(ctx, opts, TrackingPassWorkflow, TrackingPassInput{
		RefreshHolders: refreshHolders,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start tracking pass workflow: %w", err)
	}

	c.logger.Info("started tracking pass workflow",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)

	return run.GetID(), nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow
// operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
