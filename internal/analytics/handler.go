package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
)

// maxTop caps the ?top= parameter of the stats endpoint.
const maxTop = 100

// Handler serves the aggregated query statistics.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/keywords/{keyword}", h.Keyword)
}

// Stats answers with the aggregate statistics. ?top=N changes how many
// keywords each ranking lists.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := defaultTopKeywords
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTop {
			h.writeJSON(w, r, http.StatusBadRequest, map[string]string{
				"error": "top must be an integer between 1 and " + strconv.Itoa(maxTop),
			})
			return
		}
		top = n
	}
	h.writeJSON(w, r, http.StatusOK, h.aggregator.StatsTop(top))
}

// Keyword answers with how often one keyword has been queried.
func (h *Handler) Keyword(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.aggregator.Keyword(r.PathValue("keyword")))
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to write analytics response", "error", err)
	}
}
