package procurement

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes procurement endpoints under /api/procurement.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	errw     httpx.ErrorWriter
}

// NewHandler constructs the procurement handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, errw httpx.ErrorWriter) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, errw: errw}
}

// MountRoutes registers procurement routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/agreements", func(r chi.Router) {
		r.Post("/", h.createAgreement)
		r.Get("/", h.listAgreements)
		r.Get("/{id}", h.getAgreement)
		r.Put("/{id}", h.updateAgreement)
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func (h *Handler) createAgreement(w http.ResponseWriter, r *http.Request) {
	var input CreateAgreementInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	input.CreatedBy = shared.UserIDFromContext(r.Context())
	agreement, err := h.service.CreateAgreement(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, agreement)
}

func (h *Handler) listAgreements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	agreements, pg, err := h.service.ListAgreements(r.Context(), page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, agreements, pg)
}

func (h *Handler) getAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid agreement id")
		return
	}
	agreement, err := h.service.GetAgreement(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, agreement)
}

func (h *Handler) updateAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid agreement id")
		return
	}
	var input UpdateAgreementInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agreement, err := h.service.UpdateAgreement(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, agreement)
}
