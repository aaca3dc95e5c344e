// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	approvalsfeature "github.com/dalemusser/tempohub/internal/app/features/approvals"
	auditlogfeature "github.com/dalemusser/tempohub/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/tempohub/internal/app/features/authgoogle"
	healthfeature "github.com/dalemusser/tempohub/internal/app/features/health"
	loginfeature "github.com/dalemusser/tempohub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/tempohub/internal/app/features/logout"
	membersfeature "github.com/dalemusser/tempohub/internal/app/features/members"
	projectpermsfeature "github.com/dalemusser/tempohub/internal/app/features/projectperms"
	projectsfeature "github.com/dalemusser/tempohub/internal/app/features/projects"
	reportsfeature "github.com/dalemusser/tempohub/internal/app/features/reports"
	tasksfeature "github.com/dalemusser/tempohub/internal/app/features/tasks"
	timeentriesfeature "github.com/dalemusser/tempohub/internal/app/features/timeentries"
	timesheetsfeature "github.com/dalemusser/tempohub/internal/app/features/timesheets"
	"github.com/dalemusser/tempohub/internal/app/store/audit"
	userstore "github.com/dalemusser/tempohub/internal/app/store/users"
	"github.com/dalemusser/tempohub/internal/app/system/auditlog"
	"github.com/dalemusser/tempohub/internal/app/system/auth"
	"github.com/dalemusser/tempohub/internal/app/system/requestid"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and Startup have completed. TempoHub serves a JSON API: session
// endpoints under /api/login, /api/logout and /auth/google, and the
// signed-in surface under /api/*.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser fetches fresh user data on each request, so role
	// changes and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication.
	loginHandler := loginfeature.NewHandler(db, sessionMgr, auditLog, logger)
	r.Mount("/api/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/api/logout", logoutfeature.Routes(logoutHandler))

	if appCfg.GoogleClientID != "" {
		googleHandler := authgooglefeature.NewHandler(db, sessionMgr, auditLog,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	}

	// Signed-in API surface.
	r.Group(func(r chi.Router) {
		r.Use(sessionMgr.RequireSignedIn)

		permsHandler := projectpermsfeature.NewHandler(db, auditLog, logger)
		tasksHandler := tasksfeature.NewHandler(db, logger)
		projectsHandler := projectsfeature.NewHandler(db, auditLog, logger)
		r.Mount("/api/projects", projectsfeature.Routes(projectsHandler,
			projectpermsfeature.Routes(permsHandler),
			projectpermsfeature.MembersRoutes(permsHandler),
			tasksfeature.Routes(tasksHandler)))

		entriesHandler := timeentriesfeature.NewHandler(db, logger)
		r.Mount("/api/timeentries", timeentriesfeature.Routes(entriesHandler))

		timesheetsHandler := timesheetsfeature.NewHandler(db, auditLog, logger)
		r.Mount("/api/timesheets", timesheetsfeature.Routes(timesheetsHandler))

		approvalsHandler := approvalsfeature.NewHandler(db, auditLog, logger)
		r.Mount("/api/approvals", approvalsfeature.Routes(approvalsHandler))

		membersHandler := membersfeature.NewHandler(db, auditLog, logger)
		r.Mount("/api/members", membersfeature.Routes(membersHandler))

		reportsHandler := reportsfeature.NewHandler(db, logger)
		r.Mount("/api/reports", reportsfeature.Routes(reportsHandler))

		auditlogHandler := auditlogfeature.NewHandler(db, logger)
		r.Mount("/api/auditlog", auditlogfeature.Routes(auditlogHandler))
	})

	return r, nil
}
