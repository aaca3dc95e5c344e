// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler clears the session.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

// NewHandler constructs a logout Handler.
func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// HandleLogout handles POST /api/logout. Signing out an already
// signed-out session succeeds quietly.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID, spaceID := "", ""
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
		spaceID = u.SpaceID
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		apiutil.WriteServerError(w, h.Log, "logout: session clear", err)
		return
	}

	if userID != "" {
		h.AuditLog.Logout(r.Context(), r, userID, spaceID)
		h.Log.Info("user logged out", zap.String("user_id", userID))
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
