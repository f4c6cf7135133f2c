package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(c prometheus.Counter) float64 {
	var m io_prometheus_client.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func TestRecordExport(t *testing.T) {
	runs := ExportsTotal.WithLabelValues("product", OutcomeSuccess)
	records := ExportedRecordsTotal.WithLabelValues("product")
	beforeRuns, beforeRecords := counterValue(runs), counterValue(records)

	RecordExport("product", OutcomeSuccess, time.Second, 12)
	RecordExport("product", OutcomeFailure, time.Second, 12)

	assert.Equal(t, beforeRuns+1, counterValue(runs))
	assert.Equal(t, beforeRecords+12, counterValue(records))
}

func TestRecordPublishAndRecommendation(t *testing.T) {
	open := EventPublishesTotal.WithLabelValues(OutcomeBreakerOpen)
	empty := RecommendationRequestsTotal.WithLabelValues(OutcomeEmpty)
	beforeOpen, beforeEmpty := counterValue(open), counterValue(empty)

	RecordPublish(OutcomeBreakerOpen)
	RecordRecommendation(OutcomeEmpty)

	assert.Equal(t, beforeOpen+1, counterValue(open))
	assert.Equal(t, beforeEmpty+1, counterValue(empty))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordExport("customer", OutcomeSuccess, time.Millisecond, 1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "personalize_exports_total")
	assert.Contains(t, string(body), "personalize_export_duration_seconds")
}
