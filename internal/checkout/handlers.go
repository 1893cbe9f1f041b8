package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/monmi-labs/pay-gateway/internal/common"
	"github.com/monmi-labs/pay-gateway/internal/session"
)

// Handler exposes the nonce and checkout endpoints.
type Handler struct {
	Finalizer *Finalizer
	Nonces    *NonceStore
}

// Nonce handles GET /checkout/nonce.
func (h *Handler) Nonce(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Nonces == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout handler unavailable", nil)
		return
	}
	shopperID := session.ShopperID(w, r)
	nonce, err := h.Nonces.Issue(r.Context(), shopperID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unable to issue checkout nonce", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"nonce": nonce})
}

type checkoutReq struct {
	OrderID       int64  `json:"order_id"`
	PaymentMethod string `json:"payment_method"`
	Nonce         string `json:"nonce"`
	Token         string `json:"monmi_payment_token"`
	Code          string `json:"monmi_payment_code"`
	Status        string `json:"monmi_payment_status"`
	Payload       string `json:"monmi_payment_payload"`
}

// Submit handles POST /checkout.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Finalizer == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout handler unavailable", nil)
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid body", nil)
		return
	}
	if req.OrderID <= 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "order_id is required", nil)
		return
	}

	redirect, err := h.Finalizer.Finalize(r.Context(), Input{
		OrderID:       req.OrderID,
		ShopperID:     session.ShopperID(w, r),
		PaymentMethod: req.PaymentMethod,
		Nonce:         req.Nonce,
		Token:         req.Token,
		Code:          req.Code,
		Status:        req.Status,
		Payload:       req.Payload,
	})
	if err != nil {
		if errors.Is(err, ErrNotThisGateway) {
			common.JSON(w, http.StatusOK, map[string]string{"result": "skipped"})
			return
		}
		if appErr, ok := common.AsAppError(err); ok {
			common.JSONAppError(w, appErr)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unable to finalise checkout", nil)
		return
	}

	common.JSON(w, http.StatusOK, map[string]string{"result": "success", "redirect": redirect})
}
