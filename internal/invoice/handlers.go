package invoice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velanstores/backend-kadai/internal/common"
)

// Handler exposes the admin invoice endpoints under /api/v1/admin/invoices.
type Handler struct {
	Service      *Service
	Renderer     *PDFRenderer
	DefaultLimit int
	MaxLimit     int
}

// List handles GET /api/v1/admin/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.DefaultLimit, h.MaxLimit)
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	result, err := h.Service.List(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: result.Total},
	})
}

// Get handles GET /api/v1/admin/invoices/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Create handles POST /api/v1/admin/invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	view, err := h.Service.Create(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Update handles PUT /api/v1/admin/invoices/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	view, err := h.Service.UpdateDraft(r.Context(), id, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Delete handles DELETE /api/v1/admin/invoices/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteDraft(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/admin/invoices/{id}/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.serviceSend)
}

// Pay handles POST /api/v1/admin/invoices/{id}/pay.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.servicePay)
}

// Cancel handles POST /api/v1/admin/invoices/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.serviceCancel)
}

// PDF handles GET /api/v1/admin/invoices/{id}/pdf.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil || h.Renderer == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice renderer not configured", nil)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.Service.Raw(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	data, err := h.Renderer.Render(inv)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to render invoice", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type transitionFunc func(r *http.Request, id uuid.UUID) (View, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := fn(r, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) serviceSend(r *http.Request, id uuid.UUID) (View, error) {
	return h.Service.Send(r.Context(), id)
}

func (h *Handler) servicePay(r *http.Request, id uuid.UUID) (View, error) {
	return h.Service.Pay(r.Context(), id)
}

func (h *Handler) serviceCancel(r *http.Request, id uuid.UUID) (View, error) {
	return h.Service.Cancel(r.Context(), id)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}
