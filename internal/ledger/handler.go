package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes /api/accounts and /api/journal-entries.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validate  *validator.Validate
	errw      httpx.ErrorWriter
	adminOnly func(http.Handler) http.Handler
}

// NewHandler constructs the ledger handler.
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

// MountRoutes registers ledger routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.createAccount)
		r.Get("/", h.listAccounts)
		r.Get("/{id}", h.getAccount)
		r.Put("/{id}", h.updateAccount)
		r.With(h.adminOnly).Delete("/{id}", h.deleteAccount)
	})
	r.Route("/journal-entries", func(r chi.Router) {
		r.Post("/", h.createEntry)
		r.Get("/", h.listEntries)
		r.Get("/{id}", h.getEntry)
		r.Put("/{id}", h.updateEntry)
		r.With(h.adminOnly).Delete("/{id}", h.deleteEntry)
		r.Post("/{id}/post", h.postEntry)
		r.Post("/{id}/void", h.voidEntry)
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var input CreateAccountInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, account)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), AccountType(r.URL.Query().Get("type")))
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, accounts)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid account id")
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, account)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var input UpdateAccountInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var input CreateEntryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	input.CreatedBy = shared.UserIDFromContext(r.Context())
	entry, err := h.service.CreateEntry(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	entries, pg, err := h.service.ListEntries(r.Context(), ListEntriesRequest{
		Status:  EntryStatus(q.Get("status")),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, entries, pg)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, entry)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var input UpdateEntryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.service.UpdateEntry(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, entry)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) postEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entry, err := h.service.PostEntry(r.Context(), id, shared.UserIDFromContext(r.Context()))
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, entry)
}

func (h *Handler) voidEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var input VoidEntryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.service.VoidEntry(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, entry)
}
