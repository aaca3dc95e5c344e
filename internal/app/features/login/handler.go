// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"strings"

	loginstore "github.com/dalemusser/tempohub/internal/app/store/logins"
	spacestore "github.com/dalemusser/tempohub/internal/app/store/spaces"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/apiutil"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler processes password logins.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Users      *userstore.Store
	Spaces     *spacestore.Store
	Logins     *loginstore.Store
}

// NewHandler constructs a login Handler.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Users:      userstore.New(db),
		Spaces:     spacestore.New(db),
		Logins:     loginstore.New(db),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Space optionally selects a space by subdomain; when omitted the
	// first (only) space is used.
	Space string `json:"space,omitempty"`
}

type loginResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	SpaceID string `json:"space_id"`
}

// HandleLogin handles POST /api/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, "invalid JSON body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "email is required"
	}
	if req.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		apiutil.WriteValidationError(w, "Email and password are required.", fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	space, err := h.lookupSpace(ctx, req.Space)
	if err != nil {
		if err == spacestore.ErrNotFound {
			apiutil.WriteUnauthorized(w)
			return
		}
		apiutil.WriteServerError(w, h.Log, "login: space lookup", err)
		return
	}

	user, err := h.Users.GetByEmail(ctx, space.ID, req.Email)
	if err != nil {
		if err == userstore.ErrNotFound {
			h.AuditLog.LoginFailedUserNotFound(ctx, r, req.Email)
			apiutil.WriteUnauthorized(w)
			return
		}
		apiutil.WriteServerError(w, h.Log, "login: user lookup", err)
		return
	}

	if strings.ToLower(user.Status) == "disabled" {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, user.ID, &space.ID, req.Email)
		apiutil.WriteUnauthorized(w)
		return
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, user.ID, &space.ID, req.Email)
		apiutil.WriteUnauthorized(w)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, user.ID.Hex()); err != nil {
		apiutil.WriteServerError(w, h.Log, "login: session save", err)
		return
	}

	if err := h.Logins.CreateFrom(ctx, r, user.ID, "password"); err != nil {
		// Login record is best-effort; the session is already set.
		h.Log.Warn("login: record insert failed", zap.Error(err), zap.String("user_id", user.ID.Hex()))
	}
	h.AuditLog.LoginSuccess(ctx, r, user.ID, &space.ID, "password", user.Email)

	h.Log.Info("user logged in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("space_id", space.ID.Hex()))

	apiutil.WriteJSON(w, http.StatusOK, loginResponse{
		ID:      user.ID.Hex(),
		Name:    user.FullName,
		Email:   user.Email,
		Role:    user.Role,
		SpaceID: user.SpaceID.Hex(),
	})
}

func (h *Handler) lookupSpace(ctx context.Context, subdomain string) (models.Space, error) {
	if subdomain != "" {
		return h.Spaces.GetBySubdomain(ctx, strings.ToLower(strings.TrimSpace(subdomain)))
	}
	return h.Spaces.GetFirst(ctx)
}
