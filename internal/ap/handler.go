package ap

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes AP endpoints under /api/ap.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validate  *validator.Validate
	errw      httpx.ErrorWriter
	adminOnly func(http.Handler) http.Handler
}

// NewHandler constructs the AP handler.
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

// MountRoutes registers AP routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Post("/", h.createSupplier)
		r.Get("/", h.listSuppliers)
		r.Get("/{id}", h.getSupplier)
		r.Put("/{id}", h.updateSupplier)
		r.With(h.adminOnly).Delete("/{id}", h.deleteSupplier)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Get("/", h.listInvoices)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}", h.updateInvoice)
		r.Post("/{id}/void", h.voidInvoice)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.createPayment)
		r.Get("/", h.listPayments)
		r.Get("/{id}", h.getPayment)
		r.Get("/{id}/applications", h.listApplications)
		r.Post("/{id}/applications", h.applyPayment)
		r.Delete("/applications/{applicationID}", h.reverseApplication)
	})
	r.Get("/aging", h.aging)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return page, perPage
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var input CreateSupplierInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, supplier)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	suppliers, pg, err := h.service.ListSuppliers(r.Context(), page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, suppliers, pg)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	supplier, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, supplier)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var input UpdateSupplierInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	supplier, err := h.service.UpdateSupplier(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, supplier)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
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
	page, perPage := pageParams(r)
	q := r.URL.Query()
	supplierID, _ := strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	req := ListInvoicesRequest{
		Status:     InvoiceStatus(q.Get("status")),
		SupplierID: supplierID,
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

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	var input VoidInvoiceInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.service.VoidInvoice(r.Context(), id, input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv)
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var input CreatePaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	input.CreatedBy = shared.UserIDFromContext(r.Context())
	payment, err := h.service.CreatePayment(r.Context(), input)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, payment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	payments, pg, err := h.service.ListPayments(r.Context(), page, perPage)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OKPage(w, payments, pg)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, payment)
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	apps, err := h.service.ListApplications(r.Context(), id)
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, apps)
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	var input ApplyPaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	app, err := h.service.ApplyPayment(r.Context(), id, input)
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

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	bucket, err := h.service.Aging(r.Context(), h.service.now().UTC())
	if err != nil {
		h.errw.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, bucket)
}
