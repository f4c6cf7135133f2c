package recommend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"example.com/personalize-go/internal/metrics"
)

// CustomerHeader carries the signed-in customer id, set by the session layer in front of the storefront.
const CustomerHeader = "X-Customer-Id"

// Recommender is what the handler needs from Client.
type Recommender interface {
	GetRecommendations(ctx context.Context, req Request) (Result, error)
}

// Handler serves recommendations to signed-in customers.
type Handler struct {
	recommender Recommender
	enabled     bool
	logger      *slog.Logger
}

// NewHandler builds the HTTP surface. A disabled handler answers 404 to everyone.
func NewHandler(recommender Recommender, enabled bool, logger *slog.Logger) *Handler {
	return &Handler{recommender: recommender, enabled: enabled, logger: logger}
}

// Mount attaches GET /personalize/recommendation.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/personalize/recommendation", h.ServeHTTP)
}

// CanShow reports whether recommendations are shown for customerID.
func (h *Handler) CanShow(customerID string) bool {
	return h.enabled && customerID != ""
}

// ServeHTTP answers with the recommended items. Failures never fail the response:
// they are reported as {"error": message} with status 200.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.Header.Get(CustomerHeader))
	if !h.CanShow(customerID) {
		metrics.RecordRecommendation(metrics.OutcomeSkipped)
		http.NotFound(w, r)
		return
	}
	if _, err := strconv.ParseInt(customerID, 10, 64); err != nil {
		metrics.RecordRecommendation(metrics.OutcomeSkipped)
		http.NotFound(w, r)
		return
	}

	result, err := h.recommender.GetRecommendations(r.Context(), Request{
		ItemID: r.URL.Query().Get("itemId"),
		UserID: customerID,
	})
	if err != nil {
		metrics.RecordRecommendation(metrics.OutcomeFailure)
		h.logger.Warn("recommendation failed", "customer_id", customerID, "error", err)
		writeJSON(w, map[string]any{"error": err.Error()})
		return
	}
	if len(result.Items) == 0 {
		metrics.RecordRecommendation(metrics.OutcomeEmpty)
		writeJSON(w, map[string]any{"items": []any{}})
		return
	}
	metrics.RecordRecommendation(metrics.OutcomeSuccess)
	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
