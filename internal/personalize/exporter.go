package personalize

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspersonalize "github.com/aws/aws-sdk-go-v2/service/personalize"
	ptypes "github.com/aws/aws-sdk-go-v2/service/personalize/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"example.com/personalize-go/internal/dataset"
)

// ContentType is the media type of uploaded dataset payloads.
const ContentType = "text/csv"

// ObjectUploader is the subset of the S3 client used for dataset payloads.
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImportJobCreator is the subset of the Personalize control plane used to ingest a payload.
type ImportJobCreator interface {
	CreateDatasetImportJob(ctx context.Context, params *awspersonalize.CreateDatasetImportJobInput, optFns ...func(*awspersonalize.Options)) (*awspersonalize.CreateDatasetImportJobOutput, error)
}

// ImportJob identifies a submitted dataset import.
type ImportJob struct {
	Name         string
	ARN          string
	DataLocation string
	ETag         string
}

// Exporter uploads a payload, then asks the dataset to ingest it.
type Exporter struct {
	objects ObjectUploader
	imports ImportJobCreator
	timeout time.Duration
	logger  *slog.Logger
}

// NewExporter wires an exporter. A zero timeout means DefaultTimeout.
func NewExporter(objects ObjectUploader, imports ImportJobCreator, timeout time.Duration, logger *slog.Logger) *Exporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exporter{objects: objects, imports: imports, timeout: timeout, logger: logger}
}

// NewExporterFromClients wires an exporter to the real S3 and Personalize clients.
func NewExporterFromClients(c *Clients, logger *slog.Logger) *Exporter {
	return NewExporter(c.S3, c.Personalize, c.Settings.timeout(), logger)
}

// Export uploads payload to d's bucket/key and, only when the upload returned an
// object location, submits an import job named jobName. Nothing is retried here.
func (e *Exporter) Export(ctx context.Context, d dataset.JobDescriptor, jobName string, payload []byte) (ImportJob, error) {
	job := ImportJob{Name: jobName, DataLocation: d.DataLocation()}

	etag, err := e.upload(ctx, d, payload)
	if err != nil {
		return job, err
	}
	job.ETag = etag
	e.logger.Info("dataset uploaded", "kind", d.Kind, "location", job.DataLocation, "bytes", len(payload))

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	out, err := e.imports.CreateDatasetImportJob(callCtx, &awspersonalize.CreateDatasetImportJobInput{
		DatasetArn: aws.String(d.DatasetARN),
		JobName:    aws.String(jobName),
		RoleArn:    aws.String(d.RoleARN),
		DataSource: &ptypes.DataSource{DataLocation: aws.String(job.DataLocation)},
	})
	if err != nil {
		return job, fmt.Errorf("create dataset import job %s: %w", jobName, err)
	}
	job.ARN = aws.ToString(out.DatasetImportJobArn)
	e.logger.Info("import job submitted", "kind", d.Kind, "job_name", jobName, "job_arn", job.ARN)
	return job, nil
}

func (e *Exporter) upload(ctx context.Context, d dataset.JobDescriptor, payload []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	out, err := e.objects.PutObject(callCtx, &s3.PutObjectInput{
		Bucket:        aws.String(d.Bucket),
		Key:           aws.String(d.Key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(ContentType),
		ACL:           s3types.ObjectCannedACLBucketOwnerFullControl,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", d.DataLocation(), err)
	}
	if out == nil || aws.ToString(out.ETag) == "" {
		return "", fmt.Errorf("put object %s: %w", d.DataLocation(), dataset.ErrUploadFailed)
	}
	return aws.ToString(out.ETag), nil
}
