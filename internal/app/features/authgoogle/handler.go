// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	loginstore "github.com/dalemusser/tempohub/internal/app/store/logins"
	"github.com/dalemusser/tempohub/internal/app/store/oauthstate"
	spacestore "github.com/dalemusser/tempohub/internal/app/store/spaces"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"github.com/dalemusser/tempohub/internal/app/system/timeouts"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const stateTTL = 10 * time.Minute

// Handler implements the Google OAuth2 sign-in flow.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Users      *userstore.Store
	Spaces     *spacestore.Store
	Logins     *loginstore.Store
	States     *oauthstate.Store
	OAuth      *oauth2.Config
}

// NewHandler constructs the Google auth Handler. baseURL is the
// externally visible origin used to build the redirect URL.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, audit *auditlog.Logger, clientID, clientSecret, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Users:      userstore.New(db),
		Spaces:     spacestore.New(db),
		Logins:     loginstore.New(db),
		States:     oauthstate.New(db),
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  strings.TrimRight(baseURL, "/") + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// ServeStart handles GET /auth/google. It stores a one-time state
// token and redirects to Google's consent screen.
func (h *Handler) ServeStart(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.Log.Error("google auth: state generation failed", zap.Error(err))
		http.Error(w, "Unable to start sign-in", http.StatusInternalServerError)
		return
	}

	returnURL := r.URL.Query().Get("return")
	if !isSafeReturnURL(returnURL) {
		returnURL = ""
	}
	space := r.URL.Query().Get("space")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.States.Save(ctx, state, returnURL, space, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("google auth: state save failed", zap.Error(err))
		http.Error(w, "Unable to start sign-in", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Info("google auth: provider returned error", zap.String("error", errParam))
		http.Redirect(w, r, "/?auth_error=cancelled", http.StatusTemporaryRedirect)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	state := r.URL.Query().Get("state")
	returnURL, space, valid, err := h.States.Validate(ctx, state)
	if err != nil {
		h.Log.Error("google auth: state validation failed", zap.Error(err))
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}
	if !valid {
		h.Log.Warn("google auth: invalid or expired state")
		http.Redirect(w, r, "/?auth_error=expired", http.StatusTemporaryRedirect)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/?auth_error=missing_code", http.StatusTemporaryRedirect)
		return
	}

	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		h.Log.Error("google auth: code exchange failed", zap.Error(err))
		http.Redirect(w, r, "/?auth_error=exchange_failed", http.StatusTemporaryRedirect)
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("google auth: userinfo fetch failed", zap.Error(err))
		http.Redirect(w, r, "/?auth_error=userinfo_failed", http.StatusTemporaryRedirect)
		return
	}
	if info.Email == "" {
		http.Redirect(w, r, "/?auth_error=no_email", http.StatusTemporaryRedirect)
		return
	}

	sp, err := h.lookupSpace(ctx, space)
	if err != nil {
		h.Log.Warn("google auth: space lookup failed", zap.Error(err), zap.String("space", space))
		http.Redirect(w, r, "/?auth_error=unknown_space", http.StatusTemporaryRedirect)
		return
	}

	user, err := h.Users.GetByEmail(ctx, sp.ID, info.Email)
	if err != nil {
		if err == userstore.ErrNotFound {
			h.AuditLog.LoginFailedUserNotFound(ctx, r, info.Email)
			http.Redirect(w, r, "/?auth_error=no_account", http.StatusTemporaryRedirect)
			return
		}
		h.Log.Error("google auth: user lookup failed", zap.Error(err))
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}

	if strings.ToLower(user.Status) == "disabled" {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, user.ID, &sp.ID, info.Email)
		http.Redirect(w, r, "/?auth_error=account_disabled", http.StatusTemporaryRedirect)
		return
	}

	// Accounts provisioned for password auth must not be hijacked via
	// a matching Google email.
	if user.AuthMethod != "" && user.AuthMethod != "google" {
		h.Log.Warn("google auth: auth method mismatch",
			zap.String("user_id", user.ID.Hex()),
			zap.String("auth_method", user.AuthMethod))
		http.Redirect(w, r, "/?auth_error=wrong_method", http.StatusTemporaryRedirect)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, user.ID.Hex()); err != nil {
		h.Log.Error("google auth: session save failed", zap.Error(err))
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}

	if err := h.Logins.CreateFrom(ctx, r, user.ID, "google"); err != nil {
		h.Log.Warn("google auth: login record failed", zap.Error(err))
	}
	h.AuditLog.LoginSuccess(ctx, r, user.ID, &sp.ID, "google", user.Email)

	h.Log.Info("user logged in via google", zap.String("user_id", user.ID.Hex()))

	if returnURL == "" {
		returnURL = "/"
	}
	http.Redirect(w, r, returnURL, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.OAuth.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (h *Handler) lookupSpace(ctx context.Context, subdomain string) (models.Space, error) {
	if subdomain != "" {
		return h.Spaces.GetBySubdomain(ctx, strings.ToLower(strings.TrimSpace(subdomain)))
	}
	return h.Spaces.GetFirst(ctx)
}

func generateState() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errors.New("random source unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// isSafeReturnURL allows only same-origin relative paths, keeping the
// post-login redirect from becoming an open redirect.
func isSafeReturnURL(u string) bool {
	return u == "" || (strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//"))
}
