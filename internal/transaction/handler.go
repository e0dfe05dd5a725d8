package transaction

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/storage"
	"github.com/frahmantamala/payflow/internal/transport"
)

const paymentSubmittedMessage = "Payment submitted. Thank you, please wait for an administrator to approve it."

type ServiceAPI interface {
	Create(ctx context.Context, principal *internal.User, dto CreateTransactionDTO) (*TransactionView, error)
	Get(ctx context.Context, principal *internal.User, id int64) (*TransactionView, error)
	List(ctx context.Context, principal *internal.User, filter ListFilter) ([]*TransactionView, int64, error)
	Update(ctx context.Context, principal *internal.User, id int64, dto UpdateTransactionDTO) (*TransactionView, error)
	Delete(ctx context.Context, principal *internal.User, id int64) error
	BulkDelete(ctx context.Context, principal *internal.User, dto BulkDeleteDTO) (int, error)
	Transition(ctx context.Context, principal *internal.User, id int64, action string) (*TransitionResponse, error)
	SubmitPayment(ctx context.Context, principal *internal.User, id int64, dto SubmitPaymentDTO) (*TransactionView, error)
	SubmitPaymentUpload(ctx context.Context, principal *internal.User, id int64, method string, proof *storage.Upload) (*TransactionView, error)
	PaymentForm(ctx context.Context, principal *internal.User, id int64) (*PaymentForm, error)
	Summary(ctx context.Context, principal *internal.User) (*SummaryResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Images  *storage.ImageValidator
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, images *storage.ImageValidator) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Images:      images,
	}
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	filter := ListFilter{
		Status: q.Get("payment_status"),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status == "" {
		filter.Status = q.Get("status")
	}
	var err error
	if filter.UserID, err = queryID(q.Get("user_id"), "user_id"); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if filter.DepartmentID, err = queryID(q.Get("department_id"), "department_id"); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	views, total, err := h.Service.List(r.Context(), principal, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TransactionsResponse{Transactions: views, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.Service.Get(r.Context(), principal, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var dto CreateTransactionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.Log(r).Warn("CreateTransaction: service error", "error", err, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateTransactionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.Service.Update(r.Context(), principal, id, dto)
	if err != nil {
		h.Log(r).Warn("UpdateTransaction: service error", "error", err, "transaction_id", id, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), principal, id); err != nil {
		h.Log(r).Warn("DeleteTransaction: service error", "error", err, "transaction_id", id, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var dto BulkDeleteDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	deleted, err := h.Service.BulkDelete(r.Context(), principal, dto)
	if err != nil {
		h.Log(r).Warn("BulkDeleteTransactions: service error", "error", err, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, BulkDeleteResponse{Deleted: deleted})
}

func (h *Handler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ActionApprove)
}

func (h *Handler) MarkTransactionPending(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ActionMarkPending)
}

func (h *Handler) MarkTransactionFailed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, ActionMarkFailed)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.Transition(r.Context(), principal, id, action)
	if err != nil {
		h.Log(r).Warn("Transition: service error", "error", err, "transaction_id", id, "action", action, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// SubmitPayment accepts either a multipart upload or JSON naming an already stored proof.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var view *TransactionView
	if transport.IsMultipart(r) {
		view, err = h.submitUpload(r, principal, id)
	} else {
		var dto SubmitPaymentDTO
		if err = h.DecodeJSON(r, &dto); err == nil {
			view, err = h.Service.SubmitPayment(r.Context(), principal, id, dto)
		}
	}
	if err != nil {
		h.Log(r).Warn("SubmitPayment: service error", "error", err, "transaction_id", id, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PaymentSubmittedResponse{
		Transaction:  view,
		Notification: "Payment submitted",
		Message:      paymentSubmittedMessage,
	})
}

func (h *Handler) submitUpload(r *http.Request, principal *internal.User, id int64) (*TransactionView, error) {
	if err := h.ParseMultipart(r); err != nil {
		return nil, err
	}
	proof, err := h.RequiredImage(r, "payment_proof", h.Images)
	if err != nil {
		return nil, err
	}
	return h.Service.SubmitPaymentUpload(r.Context(), principal, id, r.FormValue("payment_method"), proof)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.Summary(r.Context(), principal)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func queryID(raw, field string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError(field, "invalid id", internal.ErrCodeValidationFailed)
	}
	return id, nil
}
