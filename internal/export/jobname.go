package export

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// jobNameLayout is the second-granularity timestamp embedded in import job names.
const jobNameLayout = "20060102150405"

// JobName derives a unique import job name: prefix, the UTC timestamp and eight hex
// characters of a random UUID, so two runs in the same second never collide.
func JobName(prefix string, at time.Time) string {
	return jobName(prefix, at, uuid.NewString())
}

func jobName(prefix string, at time.Time, id string) string {
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return prefix + "-" + at.UTC().Format(jobNameLayout) + "-" + suffix
}
