package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/civicatlas/msa-atlas/internal/atlas"
)

// NewHandler wires the dashboard API. All routes are read-only; the
// frontend is served elsewhere, so CORS is wide open for GETs.
func NewHandler(svc *Service, metrics *Metrics) http.Handler {
	h := &handler{svc: svc, metrics: metrics}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/years", h.years)
		r.Get("/values", h.values)
		r.Get("/points", h.points)
		r.Get("/report", h.report)
		r.Get("/crosswalk", h.crosswalk)
		r.Get("/layers/{name}", h.layer)
	})

	return r
}

type handler struct {
	svc     *Service
	metrics *Metrics
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"years":  len(h.svc.Years()),
	})
}

func (h *handler) years(w http.ResponseWriter, r *http.Request) {
	h.metrics.Requests.WithLabelValues("years").Inc()

	years := h.svc.Years()
	resp := map[string]any{"years": years}
	if len(years) > 0 {
		resp["latest"] = years[len(years)-1]
	}
	respondJSON(w, http.StatusOK, resp)
}

type valuesResponse struct {
	Year     string `json:"year"`
	Category string `json:"category"`
	LoadID   string `json:"load_id"`
	atlas.ValueLookup
}

func (h *handler) values(w http.ResponseWriter, r *http.Request) {
	h.metrics.Requests.WithLabelValues("values").Inc()

	snap := h.selectSnapshot(w, r)
	if snap == nil {
		return
	}
	respondJSON(w, http.StatusOK, valuesResponse{
		Year:        snap.Year,
		Category:    snap.Category,
		LoadID:      snap.LoadID,
		ValueLookup: snap.Values,
	})
}

type pointsResponse struct {
	Year     string            `json:"year"`
	Category string            `json:"category"`
	LoadID   string            `json:"load_id"`
	Points   []atlas.Point     `json:"points"`
	Report   *atlas.JoinReport `json:"report"`
}

func (h *handler) points(w http.ResponseWriter, r *http.Request) {
	h.metrics.Requests.WithLabelValues("points").Inc()

	snap := h.selectSnapshot(w, r)
	if snap == nil {
		return
	}
	respondJSON(w, http.StatusOK, pointsResponse{
		Year:     snap.Year,
		Category: snap.Category,
		LoadID:   snap.LoadID,
		Points:   snap.Points,
		Report:   snap.Report,
	})
}

type reportResponse struct {
	LoadID     string            `json:"load_id"`
	Generation uint64            `json:"generation"`
	Year       string            `json:"year"`
	Category   string            `json:"category"`
	LoadedAt   time.Time         `json:"loaded_at"`
	ElapsedMS  int64             `json:"elapsed_ms"`
	Rows       int               `json:"rows"`
	Report     *atlas.JoinReport `json:"report"`
	Error      string            `json:"error,omitempty"`
}

func (h *handler) report(w http.ResponseWriter, r *http.Request) {
	h.metrics.Requests.WithLabelValues("report").Inc()

	snap := h.selectSnapshot(w, r)
	if snap == nil {
		return
	}
	respondJSON(w, http.StatusOK, reportResponse{
		LoadID:     snap.LoadID,
		Generation: snap.Generation,
		Year:       snap.Year,
		Category:   snap.Category,
		LoadedAt:   snap.LoadedAt,
		ElapsedMS:  snap.ElapsedMS,
		Rows:       snap.Rows,
		Report:     snap.Report,
		Error:      snap.Error,
	})
}

func (h *handler) crosswalk(w http.ResponseWriter, r *http.Request) {
	h.metrics.Requests.WithLabelValues("crosswalk").Inc()

	cw, err := h.svc.Crosswalk(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}

	title := r.URL.Query().Get("title")
	if title == "" {
		respondJSON(w, http.StatusOK, map[string]any{"crosswalk": cw})
		return
	}

	geoids, err := h.svc.Counties(r.Context(), title)
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"title":  title,
		"geoids": geoids,
	})
}

func (h *handler) layer(w http.ResponseWriter, r *http.Request) {
	h.metrics.Requests.WithLabelValues("layer").Inc()

	name := chi.URLParam(r, "name")
	if !h.svc.HasLayer(name) {
		respondJSON(w, http.StatusNotFound, map[string]any{
			"error":  "unknown layer",
			"layers": h.svc.LayerNames(),
		})
		return
	}

	layer, err := h.svc.Layer(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(layer.Raw) //nolint:errcheck
}

// selectSnapshot resolves the year/category query parameters into a
// snapshot. A nil return means the error response is already written:
// 404 for an unknown year, 502 when the load itself failed.
func (h *handler) selectSnapshot(w http.ResponseWriter, r *http.Request) *Snapshot {
	q := r.URL.Query()
	snap, err := h.svc.Select(r.Context(), q.Get("year"), q.Get("category"))
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return nil
	}
	if snap.Failed() {
		respondJSON(w, http.StatusBadGateway, snap)
		return nil
	}
	return snap
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, code int, err error) {
	respondJSON(w, code, map[string]string{"error": err.Error()})
}
