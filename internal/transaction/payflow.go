package transaction

import (
	"net/http"
)

// PaymentPage serves GET /payflow/payment/{transactionId}.
func (h *Handler) PaymentPage(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "transactionId")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	form, err := h.Service.PaymentForm(r.Context(), principal, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, form)
}

// SubmitPaymentPage serves POST /payflow/payment/{transactionId} with a multipart
// payment_method and payment_proof.
func (h *Handler) SubmitPaymentPage(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "transactionId")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.submitUpload(r, principal, id)
	if err != nil {
		h.Log(r).Warn("SubmitPaymentPage: service error", "error", err, "transaction_id", id, "user_id", principal.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PaymentSubmittedResponse{
		Transaction:  view,
		Notification: "Payment submitted",
		Message:      paymentSubmittedMessage,
	})
}
