package activity

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"registra/internal/identity"
	"registra/internal/platform/metrics"
	"registra/internal/platform/middleware"
	"registra/pkg/domainerrors"
	"registra/pkg/platform/httputil"
	"registra/pkg/requestcontext"
)

// Handler exposes the reporting endpoints. Every route is admin-only.
type Handler struct {
	engine   *QueryEngine
	verifier middleware.TokenVerifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(engine *QueryEngine, verifier middleware.TokenVerifier, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{engine: engine, verifier: verifier, logger: logger, metrics: m}
}

// Register mounts the activity routes behind the admin gate.
func (h *Handler) Register(r chi.Router) {
	admin := chi.NewRouter()
	admin.Use(middleware.RequireRoles(h.verifier, h.logger, h.metrics, identity.RoleAdmin))
	admin.Get("/recent/actions", h.handleSummary)
	admin.Get("/filtered/activities", h.handleSearch)
	admin.Get("/one/{activityID}", h.handleOne)
	admin.Get("/all/{userID}", h.handleByActor)

	r.Mount("/activity", admin)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Summarize(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := QueryParams{
		Q:     q.Get("q"),
		Page:  atoiOr(q.Get("page"), 1),
		Limit: atoiOr(q.Get("limit"), defaultPageSize),
		From:  q.Get("from"),
		To:    q.Get("to"),
	}

	result, err := h.engine.Search(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleOne(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid activity id"))
		return
	}

	joined, err := h.engine.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, joined)
}

func (h *Handler) handleByActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid user id"))
		return
	}

	records, err := h.engine.ListByActor(r.Context(), actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "activity query failed",
		"error", err,
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(r.Context()),
	)
	httputil.WriteError(w, err)
}

// atoiOr coerces malformed numeric query params to their default.
func atoiOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
