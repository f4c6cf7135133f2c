package dataset

import (
	"fmt"
	"regexp"
)

const (
	// MaxJobNameLen is the longest import job name the remote service accepts.
	MaxJobNameLen = 63
	// MaxJobNamePrefixLen leaves room for the "-YYYYMMDDHHMMSS-xxxxxxxx" suffix added per run.
	MaxJobNamePrefixLen = MaxJobNameLen - len("-20060102150405-") - 8
)

var jobNamePrefixPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// JobDescriptor is the immutable remote configuration of one dataset kind.
type JobDescriptor struct {
	Kind          Kind
	Bucket        string
	Key           string
	DatasetARN    string
	RoleARN       string
	JobNamePrefix string
}

// DataLocation is the object storage URI the import job reads from.
func (d JobDescriptor) DataLocation() string {
	return fmt.Sprintf("s3://%s/%s", d.Bucket, d.Key)
}

// Validate reports the first unset field as a MissingConfigError, and a job name
// prefix the remote service would reject as an InvalidConfigError.
func (d JobDescriptor) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"bucket", d.Bucket},
		{"key", d.Key},
		{"dataset_arn", d.DatasetARN},
		{"role_arn", d.RoleARN},
		{"job_name", d.JobNamePrefix},
	}
	for _, f := range fields {
		if f.value == "" {
			return &MissingConfigError{Kind: d.Kind, Field: f.name}
		}
	}
	if len(d.JobNamePrefix) > MaxJobNamePrefixLen {
		return &InvalidConfigError{Kind: d.Kind, Field: "job_name", Value: d.JobNamePrefix,
			Reason: fmt.Sprintf("longer than %d characters", MaxJobNamePrefixLen)}
	}
	if !jobNamePrefixPattern.MatchString(d.JobNamePrefix) {
		return &InvalidConfigError{Kind: d.Kind, Field: "job_name", Value: d.JobNamePrefix,
			Reason: "must start with a letter or digit and contain only letters, digits, '-' and '_'"}
	}
	return nil
}
