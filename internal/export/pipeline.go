// Package export runs dataset exports: extract, serialize, upload and submit an import
// job, either in-process or as a Temporal workflow.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/extract"
	"example.com/personalize-go/internal/metrics"
	"example.com/personalize-go/internal/personalize"
)

// Milestone is an observable stage of one export run.
type Milestone string

const (
	MilestoneStarted   Milestone = "started"
	MilestonePrepared  Milestone = "prepared"
	MilestoneUploading Milestone = "uploading"
	MilestoneDone      Milestone = "done"
)

// Reporter receives milestones in order. It may be nil.
type Reporter func(kind dataset.Kind, m Milestone)

// DescriptorSource resolves the remote coordinates of a dataset kind.
type DescriptorSource interface {
	Descriptor(kind dataset.Kind) (dataset.JobDescriptor, error)
}

// ExtractorFactory returns the extractor of a dataset kind.
type ExtractorFactory func(kind dataset.Kind) (extract.Extractor, error)

// Serializer turns records into the uploaded payload.
type Serializer interface {
	Serialize(records []dataset.Record) ([]byte, error)
}

// Uploader ships a payload and submits its import job.
type Uploader interface {
	Export(ctx context.Context, d dataset.JobDescriptor, jobName string, payload []byte) (personalize.ImportJob, error)
}

// RunRecorder keeps a history of export runs. It may be nil.
type RunRecorder interface {
	Begin(ctx context.Context, run Run) (int64, error)
	Finish(ctx context.Context, run Run) error
}

// Result summarizes a successful export run.
type Result struct {
	Kind         dataset.Kind `json:"kind"`
	JobName      string       `json:"job_name"`
	JobARN       string       `json:"job_arn"`
	DataLocation string       `json:"data_location"`
	Records      int          `json:"records"`
	Bytes        int          `json:"bytes"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  time.Time    `json:"completed_at"`
}

// Pipeline is the sequential, single-pass export of one dataset kind.
type Pipeline struct {
	descriptors DescriptorSource
	extractors  ExtractorFactory
	serializer  Serializer
	uploader    Uploader
	runs        RunRecorder
	logger      *slog.Logger
	now         func() time.Time
	jobName     func(prefix string, at time.Time) string
}

// NewPipeline wires the export stages. runs may be nil.
func NewPipeline(descriptors DescriptorSource, extractors ExtractorFactory, serializer Serializer, uploader Uploader, runs RunRecorder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		descriptors: descriptors,
		extractors:  extractors,
		serializer:  serializer,
		uploader:    uploader,
		runs:        runs,
		logger:      logger,
		now:         time.Now,
		jobName:     JobName,
	}
}

// RunExport exports every record of kind. Exporting nothing is an error
// (dataset.ErrEmptyDataset); any failing stage aborts the run and its error is returned.
func (p *Pipeline) RunExport(ctx context.Context, kind dataset.Kind, report Reporter) (Result, error) {
	if report == nil {
		report = func(dataset.Kind, Milestone) {}
	}
	started := p.now()
	result := Result{Kind: kind, StartedAt: started}

	d, err := p.descriptors.Descriptor(kind)
	if err != nil {
		p.record(kind, started, 0, err)
		return result, err
	}
	result.DataLocation = d.DataLocation()
	result.JobName = p.jobName(d.JobNamePrefix, started)

	run := Run{Kind: kind, JobName: result.JobName, Status: RunStatusRunning, StartedAt: started}
	run.ID = p.beginRun(ctx, run)

	result, err = p.run(ctx, d, result, report)
	run.Records = result.Records
	run.JobARN = result.JobARN
	run.CompletedAt = p.now()
	run.Status = RunStatusSucceeded
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
	}
	p.finishRun(ctx, run)
	p.record(kind, started, result.Records, err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, d dataset.JobDescriptor, result Result, report Reporter) (Result, error) {
	logger := p.logger.With("kind", d.Kind, "job_name", result.JobName)
	report(d.Kind, MilestoneStarted)

	extractor, err := p.extractors(d.Kind)
	if err != nil {
		return result, err
	}
	records, err := extractor.Prepare(ctx)
	if err != nil {
		return result, fmt.Errorf("prepare %s data: %w", d.Kind, err)
	}
	if len(records) == 0 {
		return result, fmt.Errorf("%s export: %w", d.Kind, dataset.ErrEmptyDataset)
	}
	result.Records = len(records)
	logger.Info("dataset prepared", "records", len(records))
	report(d.Kind, MilestonePrepared)

	payload, err := p.serializer.Serialize(records)
	if err != nil {
		return result, fmt.Errorf("serialize %s data: %w", d.Kind, err)
	}
	result.Bytes = len(payload)

	report(d.Kind, MilestoneUploading)
	job, err := p.uploader.Export(ctx, d, result.JobName, payload)
	if err != nil {
		return result, err
	}
	result.JobARN = job.ARN
	result.CompletedAt = p.now()
	report(d.Kind, MilestoneDone)
	logger.Info("export finished", "job_arn", job.ARN, "bytes", len(payload), "elapsed", result.CompletedAt.Sub(result.StartedAt))
	return result, nil
}

func (p *Pipeline) beginRun(ctx context.Context, run Run) int64 {
	if p.runs == nil {
		return 0
	}
	id, err := p.runs.Begin(ctx, run)
	if err != nil {
		p.logger.Warn("record export run failed", "kind", run.Kind, "error", err)
	}
	return id
}

func (p *Pipeline) finishRun(ctx context.Context, run Run) {
	if p.runs == nil || run.ID == 0 {
		return
	}
	if err := p.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("finish export run failed", "kind", run.Kind, "run_id", run.ID, "error", err)
	}
}

func (p *Pipeline) record(kind dataset.Kind, started time.Time, records int, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, dataset.ErrEmptyDataset):
		outcome = metrics.OutcomeEmpty
	case err != nil:
		outcome = metrics.OutcomeFailure
	}
	metrics.RecordExport(string(kind), outcome, p.now().Sub(started), records)
	if err != nil {
		p.logger.Error("export failed", "kind", kind, "error", err, "error_type", dataset.ErrorType(err))
	}
}
