package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes /api/parties, /api/tax-rates and /api/customer-supplier.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validate  *validator.Validate
	errw      httpx.ErrorWriter
	adminOnly func(http.Handler) http.Handler
}

// NewHandler constructs the master data handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, errw httpx.ErrorWriter) *Handler {
	return &Handler{
		logger: logger, service: service, validate: validate, errw: errw,
		adminOnly: func(next http.Handler) http.Handler { return next },
	}
}

// WithAdminGuard gates destructive routes behind mw.
func (h *Handler) WithAdminGuard(mw func(http.Handler) http.Handler) *Handler {
	h.adminOnly = mw
	return h
}

// MountRoutes registers master data routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/parties", func(r chi.Router) {
		r.Post("/", h.createParty)
		r.Get("/", h.listParties)
		r.Get("/{id}", h.getParty)
		r.Put("/{id}", h.updateParty)
		r.With(h.adminOnly).Delete("/{id}", h.deleteParty)
		r.Post("/{id}/sites", h.addSite)
		r.Delete("/{id}/sites/{siteID}", h.removeSite)
		r.Post("/{id}/contacts", h.addContact)
		r.Delete("/{id}/contacts/{contactID}", h.removeContact)
	})
	r.Route("/tax-rates", func(r chi.Router) {
		r.Post("/", h.createTaxRate)
		r.Get("/", h.listTaxRates)
		r.Get("/{id}", h.getTaxRate)
		r.Put("/{id}", h.updateTaxRate)
	})
	r.Route("/customer-supplier", func(r chi.Router) {
		r.Post("/", h.createLink)
		r.Get("/", h.listLinks)
		r.Delete("/{id}", h.deleteLink)
	})
}

func param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var input CreatePartyInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	party, err := h.service.CreateParty(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, party)
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	parties, pg, err := h.service.ListParties(r.Context(), page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, parties, pg)
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid party id")
		return
	}
	detail, err := h.service.GetPartyDetail(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, detail)
}

func (h *Handler) updateParty(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid party id")
		return
	}
	var input UpdatePartyInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	party, err := h.service.UpdateParty(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, party)
}

func (h *Handler) deleteParty(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid party id")
		return
	}
	if err := h.service.DeleteParty(r.Context(), id); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) addSite(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid party id")
		return
	}
	var input CreateSiteInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	site, err := h.service.AddSite(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, site)
}

func (h *Handler) removeSite(w http.ResponseWriter, r *http.Request) {
	partyID, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid party id")
		return
	}
	siteID, err := param(r, "siteID")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid site id")
		return
	}
	if err := h.service.RemoveSite(r.Context(), partyID, siteID); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": siteID})
}

func (h *Handler) addContact(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid party id")
		return
	}
	var input CreateContactInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	contact, err := h.service.AddContact(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, contact)
}

func (h *Handler) removeContact(w http.ResponseWriter, r *http.Request) {
	partyID, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid party id")
		return
	}
	contactID, err := param(r, "contactID")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid contact id")
		return
	}
	if err := h.service.RemoveContact(r.Context(), partyID, contactID); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": contactID})
}

func (h *Handler) createTaxRate(w http.ResponseWriter, r *http.Request) {
	var input CreateTaxRateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	taxRate, err := h.service.CreateTaxRate(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, taxRate)
}

func (h *Handler) listTaxRates(w http.ResponseWriter, r *http.Request) {
	taxRates, err := h.service.ListTaxRates(r.Context())
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, taxRates)
}

func (h *Handler) getTaxRate(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid tax rate id")
		return
	}
	taxRate, err := h.service.GetTaxRate(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, taxRate)
}

func (h *Handler) updateTaxRate(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid tax rate id")
		return
	}
	var input UpdateTaxRateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	taxRate, err := h.service.UpdateTaxRate(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, taxRate)
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request) {
	var input CreateLinkInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	link, err := h.service.CreateLink(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, link)
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	partyID, _ := strconv.ParseInt(r.URL.Query().Get("party_id"), 10, 64)
	links, err := h.service.ListLinks(r.Context(), partyID)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, links)
}

func (h *Handler) deleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := param(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid link id")
		return
	}
	if err := h.service.DeleteLink(r.Context(), id); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}
