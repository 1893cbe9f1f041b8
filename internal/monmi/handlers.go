package monmi

import (
	"net/http"

	"github.com/monmi-labs/pay-gateway/internal/common"
)

// Handler exposes provider-backed read endpoints.
type Handler struct {
	Methods *MethodsService
}

// PaymentMethods handles GET /payment/methods.
func (h *Handler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Methods == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "payment methods unavailable", nil)
		return
	}
	methods, err := h.Methods.PaymentMethods(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, common.CodeHTTPError, "unable to retrieve payment methods", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"methods": methods})
}
