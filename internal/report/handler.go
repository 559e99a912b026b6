package report

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes report endpoints under /api/reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	errw    httpx.ErrorWriter
}

// NewHandler constructs the report handler.
func NewHandler(logger *slog.Logger, service *Service, errw httpx.ErrorWriter) *Handler {
	return &Handler{logger: logger, service: service, errw: errw}
}

// MountRoutes registers report routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ap-aging", h.apAging)
	r.Get("/ar-aging", h.arAging)
}

func (h *Handler) asOf(r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.service.now().UTC(), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return asOf, true
}

func (h *Handler) apAging(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return
	}
	rep, err := h.service.APAging(r.Context(), asOf)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, rep)
}

func (h *Handler) arAging(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		return
	}
	rep, err := h.service.ARAging(r.Context(), asOf)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, rep)
}
