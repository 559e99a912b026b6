package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes inventory endpoints under /api/inventory.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	errw     httpx.ErrorWriter
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, errw httpx.ErrorWriter) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, errw: errw}
}

// MountRoutes registers inventory routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.createItem)
		r.Get("/", h.listItems)
		r.Get("/{id}", h.getItem)
		r.Put("/{id}", h.updateItem)
		r.Get("/{id}/bin-cards", h.listBinCards)
	})
	r.Post("/movements", h.recordMovement)
	r.Get("/bin-cards", h.listMovements)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var input CreateItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.service.CreateItem(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	items, pg, err := h.service.ListItems(r.Context(), page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, items, pg)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var input UpdateItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.service.UpdateItem(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, item)
}

func (h *Handler) listBinCards(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid item id")
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	cards, pg, err := h.service.ListBinCards(r.Context(), id, page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, cards, pg)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	cards, pg, err := h.service.ListMovements(r.Context(), page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, cards, pg)
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var input RecordMovementInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	input.CreatedBy = shared.UserIDFromContext(r.Context())
	card, err := h.service.RecordMovement(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, card)
}
