package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	temporalworker "go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"example.com/personalize-go/internal/dataset"
)

const (
	exportTaskQueue    = "personalize-export-task-queue"
	exportWorkflowName = "export.dataset.workflow"
	exportActivityName = "export.dataset"
)

// nonRetryableErrorTypes are the taxonomy errors a retry cannot fix.
var nonRetryableErrorTypes = []string{"EmptyDataset", "UploadFailed", "MissingConfig"}

// Orchestrator abstracts how exports are executed: in-process or through Temporal.
type Orchestrator interface {
	RunExport(ctx context.Context, input WorkflowInput) (WorkflowResult, error)
	RunExportAsync(ctx context.Context, input WorkflowInput) (string, error)
}

// WorkflowInput carries parameters into the export workflow.
type WorkflowInput struct {
	Kind   dataset.Kind `json:"kind"`
	Reason string       `json:"reason"`
}

// WorkflowResult captures the workflow output.
type WorkflowResult struct {
	WorkflowID  string    `json:"workflow_id,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
	Export      *Result   `json:"export,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// heartbeatInterval paces liveness heartbeats while an export attempt runs. It must
// stay well below the activity HeartbeatTimeout.
const heartbeatInterval = 30 * time.Second

// Activities hosts the export activity on top of the pipeline.
type Activities struct {
	pipeline       *Pipeline
	logger         *slog.Logger
	heartbeatEvery time.Duration
}

func NewActivities(pipeline *Pipeline, logger *slog.Logger) *Activities {
	return &Activities{pipeline: pipeline, logger: logger, heartbeatEvery: heartbeatInterval}
}

// ExportDatasetActivity runs one export. Taxonomy errors become application errors
// typed by dataset.ErrorType so the retry policy can stop on them.
func (a *Activities) ExportDatasetActivity(ctx context.Context, input WorkflowInput) (Result, error) {
	info := activity.GetInfo(ctx)
	// long extractions would otherwise go silent between milestones
	stop := keepAlive(ctx, a.heartbeatEvery, func() {
		activity.RecordHeartbeat(ctx, "running")
	})
	result, err := a.pipeline.RunExport(ctx, input.Kind, func(kind dataset.Kind, m Milestone) {
		activity.RecordHeartbeat(ctx, string(m))
	})
	stop()
	if err != nil {
		a.logger.Error("activity export failed", "kind", input.Kind, "attempt", info.Attempt, "error", err, "reason", input.Reason)
		if errType := dataset.ErrorType(err); errType != "" {
			return result, temporal.NewApplicationErrorWithCause(err.Error(), errType, err)
		}
		return result, err
	}
	a.logger.Info("activity export", "kind", input.Kind, "job_name", result.JobName, "records", result.Records, "reason", input.Reason)
	return result, nil
}

// keepAlive calls beat every interval until the returned stop func is called or ctx
// is done. stop waits for the beating goroutine to exit.
func keepAlive(ctx context.Context, interval time.Duration, beat func()) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				beat()
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// ExportDatasetWorkflow runs the export activity of one dataset kind under a retry policy.
func ExportDatasetWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.Kind == "" {
		return WorkflowResult{}, errors.New("kind required")
	}
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			NonRetryableErrorTypes: nonRetryableErrorTypes,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	result := WorkflowResult{StartedAt: workflow.Now(ctx)}
	logger.Info("export workflow started", "kind", input.Kind, "reason", input.Reason)

	var export Result
	if err := workflow.ExecuteActivity(ctx, exportActivityName, input).Get(ctx, &export); err != nil {
		logger.Error("export activity failed", "kind", input.Kind, "error", err)
		return result, err
	}
	result.Export = &export
	result.CompletedAt = workflow.Now(ctx)
	logger.Info("export workflow finished", "kind", input.Kind, "job_name", export.JobName, "reason", input.Reason)
	return result, nil
}

// RegisterExportWorker wires up the Temporal worker consuming the export task queue.
func RegisterExportWorker(c client.Client, pipeline *Pipeline, logger *slog.Logger) temporalworker.Worker {
	w := temporalworker.New(c, exportTaskQueue, temporalworker.Options{})
	w.RegisterWorkflowWithOptions(ExportDatasetWorkflow, workflow.RegisterOptions{Name: exportWorkflowName})
	activities := NewActivities(pipeline, logger.With("component", "export.activities"))
	w.RegisterActivityWithOptions(activities.ExportDatasetActivity, activity.RegisterOptions{Name: exportActivityName})
	return w
}

// TemporalOrchestrator starts export workflows through the Temporal client.
type TemporalOrchestrator struct {
	client client.Client
	logger *slog.Logger
}

func NewTemporalOrchestrator(c client.Client, logger *slog.Logger) *TemporalOrchestrator {
	return &TemporalOrchestrator{client: c, logger: logger.With("component", "export.orchestrator")}
}

func startOptions(kind dataset.Kind) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("export-%s-%d", kind, time.Now().UnixNano()),
		TaskQueue:                exportTaskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionTimeout: 2 * time.Hour,
	}
}

func (o *TemporalOrchestrator) RunExport(ctx context.Context, input WorkflowInput) (WorkflowResult, error) {
	we, err := o.client.ExecuteWorkflow(ctx, startOptions(input.Kind), exportWorkflowName, input)
	if err != nil {
		o.logger.Error("start workflow failed", "kind", input.Kind, "error", err)
		return WorkflowResult{}, err
	}
	var result WorkflowResult
	err = we.Get(ctx, &result)
	result.WorkflowID = we.GetID()
	result.RunID = we.GetRunID()
	if err != nil {
		o.logger.Error("wait workflow failed", "workflow_id", result.WorkflowID, "error", err)
		return result, err
	}
	o.logger.Info("workflow completed", "workflow_id", result.WorkflowID, "run_id", result.RunID, "kind", input.Kind)
	return result, nil
}

func (o *TemporalOrchestrator) RunExportAsync(ctx context.Context, input WorkflowInput) (string, error) {
	we, err := o.client.ExecuteWorkflow(ctx, startOptions(input.Kind), exportWorkflowName, input)
	if err != nil {
		o.logger.Error("start workflow async failed", "kind", input.Kind, "error", err)
		return "", err
	}
	o.logger.Info("workflow dispatched", "workflow_id", we.GetID(), "run_id", we.GetRunID(), "kind", input.Kind)
	return we.GetID(), nil
}

// ErrExportInFlight is returned when a local export of the same kind is still running.
var ErrExportInFlight = errors.New("export already in flight")

// LocalOrchestrator runs exports in-process with no retries, at most one per kind
// at a time since runs of a kind share the same object key.
type LocalOrchestrator struct {
	pipeline *Pipeline
	report   Reporter
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[dataset.Kind]bool
}

// NewLocalOrchestrator runs pipeline directly; report may be nil.
func NewLocalOrchestrator(pipeline *Pipeline, report Reporter, logger *slog.Logger) *LocalOrchestrator {
	return &LocalOrchestrator{
		pipeline: pipeline,
		report:   report,
		logger:   logger.With("component", "export.local"),
		inFlight: make(map[dataset.Kind]bool),
	}
}

func (o *LocalOrchestrator) acquire(kind dataset.Kind) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[kind] {
		return fmt.Errorf("%s: %w", kind, ErrExportInFlight)
	}
	o.inFlight[kind] = true
	return nil
}

func (o *LocalOrchestrator) release(kind dataset.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, kind)
}

// running reports whether an export of kind is in flight.
func (o *LocalOrchestrator) running(kind dataset.Kind) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[kind]
}

func (o *LocalOrchestrator) RunExport(ctx context.Context, input WorkflowInput) (WorkflowResult, error) {
	if err := o.acquire(input.Kind); err != nil {
		return WorkflowResult{}, err
	}
	defer o.release(input.Kind)

	started := time.Now()
	res, err := o.pipeline.RunExport(ctx, input.Kind, o.report)
	out := WorkflowResult{StartedAt: started, CompletedAt: time.Now()}
	if err != nil {
		return out, err
	}
	out.Export = &res
	return out, nil
}

// RunExportAsync runs the export on a detached goroutine and returns immediately.
// It refuses with ErrExportInFlight while the previous run of the kind is going.
func (o *LocalOrchestrator) RunExportAsync(ctx context.Context, input WorkflowInput) (string, error) {
	if err := o.acquire(input.Kind); err != nil {
		return "", err
	}
	id := fmt.Sprintf("local-%s-%d", input.Kind, time.Now().UnixNano())
	go func() {
		defer o.release(input.Kind)
		if _, err := o.pipeline.RunExport(context.WithoutCancel(ctx), input.Kind, o.report); err != nil {
			o.logger.Error("async export failed", "id", id, "kind", input.Kind, "error", err)
		}
	}()
	return id, nil
}

// ExportTaskQueue exposes the queue name so callers can reference it in logs and tests.
func ExportTaskQueue() string {
	return exportTaskQueue
}
