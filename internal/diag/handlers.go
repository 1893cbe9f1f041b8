// Package diag exposes operator-facing diagnostics. Everything served here is
// already masked by the snapshot store.
package diag

import (
	"net/http"

	"github.com/monmi-labs/pay-gateway/internal/common"
	"github.com/monmi-labs/pay-gateway/internal/snapshot"
)

// Handler serves the last-call diagnostic endpoint.
type Handler struct {
	Snapshots *snapshot.Store
}

// LastCall returns the redacted record of the most recent provider call.
func (h Handler) LastCall(w http.ResponseWriter, r *http.Request) {
	if h.Snapshots == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "diagnostics unavailable", nil)
		return
	}
	snap, ok := h.Snapshots.Last(r.Context())
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NO_SNAPSHOT", "no provider call recorded yet", nil)
		return
	}
	common.JSON(w, http.StatusOK, snap)
}
