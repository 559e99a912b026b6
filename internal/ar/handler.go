package ar

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes AR endpoints. Invoices and receipts live directly under
// /api, keeping the historical route shape.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	errw     httpx.ErrorWriter
}

// NewHandler constructs the AR handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, errw httpx.ErrorWriter) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, errw: errw}
}

// MountRoutes registers AR routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Get("/", h.listInvoices)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}", h.updateInvoice)
	})
	r.Route("/receipts", func(r chi.Router) {
		r.Post("/", h.createReceipt)
		r.Get("/", h.listReceipts)
		r.Get("/{receiptID}", h.getReceipt)
		r.Get("/{receiptID}/applications", h.listApplications)
		r.Post("/{receiptID}/apply", h.applyReceipt)
		r.Delete("/applications/{applicationID}", h.reverseApplication)
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var input CreateInvoiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	input.CreatedBy = shared.UserIDFromContext(r.Context())
	inv, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	req := ListInvoicesRequest{
		Status:     InvoiceStatus(q.Get("status")),
		CustomerID: customerID,
		Page:       page,
		PerPage:    perPage,
	}
	invoices, pg, err := h.service.ListInvoices(r.Context(), req)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, invoices, pg)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	var input UpdateInvoiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.service.UpdateInvoice(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv)
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	var input CreateReceiptInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	input.CreatedBy = shared.UserIDFromContext(r.Context())
	receipt, err := h.service.CreateReceipt(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, receipt)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	receipts, pg, err := h.service.ListReceipts(r.Context(), page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, receipts, pg)
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "receiptID")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	receipt, err := h.service.GetReceipt(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, receipt)
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "receiptID")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	apps, err := h.service.ListApplications(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, apps)
}

func (h *Handler) applyReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "receiptID")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	var input ApplyReceiptInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	app, err := h.service.ApplyReceipt(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, app)
}

func (h *Handler) reverseApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "applicationID")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid application id")
		return
	}
	if err := h.service.ReverseApplication(r.Context(), id); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}
