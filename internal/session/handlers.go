package session

import (
	"encoding/json"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/monmi-labs/pay-gateway/internal/common"
)

const shopperCookie = "monmi_shopper"

// ShopperID returns the shopper identity cookie, minting one on first contact.
func ShopperID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(shopperCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     shopperCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Handler exposes the session creation and seed endpoints.
type Handler struct {
	Manager  *Manager
	Validate *validator.Validate
}

type createReq struct {
	Billing  Address `json:"billing" validate:"required"`
	Shipping Address `json:"shipping"`
}

type createResp struct {
	Token   string         `json:"token"`
	Payment map[string]any `json:"payment"`
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
}

// Create handles POST /payment/create-session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Manager == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "session handler unavailable", nil)
		return
	}
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid billing details", err.Error())
			return
		}
	}

	shopperID := ShopperID(w, r)
	result, err := h.Manager.Create(r.Context(), shopperID, req.Billing, req.Shipping)
	if err != nil {
		if appErr, ok := common.AsAppError(err); ok {
			common.JSONAppError(w, appErr)
			return
		}
		// provider-side failures stay generic for the shopper
		common.JSONError(w, http.StatusBadGateway, common.CodeHTTPError, "payment provider is unavailable, please try again", nil)
		return
	}

	common.JSON(w, http.StatusOK, createResp{
		Token:   result.Session.Token,
		Payment: result.Payment,
		Status:  result.Session.Status,
		Message: result.Message,
	})
}

// Seed handles GET /payment/session: the stored session's client view.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Manager == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "session handler unavailable", nil)
		return
	}
	shopperID := ShopperID(w, r)
	seed, err := h.Manager.Seed(r.Context(), shopperID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unable to load payment session", nil)
		return
	}
	if seed == nil {
		seed = map[string]any{}
	}
	common.JSON(w, http.StatusOK, seed)
}
