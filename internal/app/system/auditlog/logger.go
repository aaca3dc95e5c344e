// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/tempohub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin action events (user/project CRUD,
	// permission changes, timesheet reviews).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// Fall back to RemoteAddr
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.SpaceID != nil {
		fields = append(fields, zap.String("space_id", event.SpaceID.Hex()))
	}
	if event.ProjectID != nil {
		fields = append(fields, zap.String("project_id", event.ProjectID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	// Determine which config setting applies based on event category
	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin, audit.CategoryPermissions, audit.CategoryTimesheets:
		setting = l.config.Admin
	default:
		setting = "all" // Default to logging everything for unknown categories
	}

	// Check if logging is disabled for this category
	if setting == "off" {
		return
	}

	// Log to zap if configured
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	// Log to MongoDB if configured
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, spaceID *primitive.ObjectID, authMethod, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"auth_method": authMethod,
			"email":       email,
		},
	})
}

// LoginFailedUserNotFound logs a failed login due to user not found.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "user not found",
		Details: map[string]string{
			"attempted_email": attemptedEmail,
		},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, spaceID *primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		SpaceID:       spaceID,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "wrong password",
		Details: map[string]string{
			"email": email,
		},
	})
}

// LoginFailedUserDisabled logs a failed login due to disabled account.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, spaceID *primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserDisabled,
		UserID:        &userID,
		SpaceID:       spaceID,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "user disabled",
		Details: map[string]string{
			"email": email,
		},
	})
}

// Logout logs a user logout.
// Accepts string IDs from SessionUser and converts them to ObjectIDs.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr, spaceIDStr string) {
	var userID *primitive.ObjectID
	var spaceID *primitive.ObjectID

	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	if oid, err := primitive.ObjectIDFromHex(spaceIDStr); err == nil {
		spaceID = &oid
	}

	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Admin Events ---

// UserCreated logs when an admin creates a user.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, spaceID *primitive.ObjectID, actorRole, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role": actorRole,
			"role":       role,
		},
	})
}

// SpaceRoleChanged logs a change to a user's space-scope role.
func (l *Logger) SpaceRoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, spaceID *primitive.ObjectID, oldRole, newRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventSpaceRoleChanged,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"old_role": oldRole,
			"new_role": newRole,
		},
	})
}

// UserStatusChanged logs a user being disabled or re-enabled.
func (l *Logger) UserStatusChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, spaceID *primitive.ObjectID, status string) {
	eventType := audit.EventUserEnabled
	if status == "disabled" {
		eventType = audit.EventUserDisabled
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"status": status,
		},
	})
}

// ProjectCreated logs project creation.
func (l *Logger) ProjectCreated(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, spaceID *primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProjectCreated,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"name": name,
		},
	})
}

// ProjectUpdated logs project field changes.
func (l *Logger) ProjectUpdated(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, spaceID *primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProjectUpdated,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"fields_changed": fieldsChanged,
		},
	})
}

// ProjectArchived logs archiving a project.
func (l *Logger) ProjectArchived(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, spaceID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProjectArchived,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// ProjectRestored logs reactivating an archived project.
func (l *Logger) ProjectRestored(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, spaceID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProjectRestored,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Permission Events ---

// MemberAddedToProject logs adding a user to a project.
func (l *Logger) MemberAddedToProject(ctx context.Context, r *http.Request, actorID, targetUserID, projectID primitive.ObjectID, spaceID *primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryPermissions,
		EventType: audit.EventMemberAddedToProject,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"role": role,
		},
	})
}

// MemberRemovedFromProject logs removing a user's project record.
func (l *Logger) MemberRemovedFromProject(ctx context.Context, r *http.Request, actorID, targetUserID, projectID primitive.ObjectID, spaceID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryPermissions,
		EventType: audit.EventMemberRemovedFromProject,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// ProjectRoleChanged logs a change to a user's project-scope role.
func (l *Logger) ProjectRoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID, projectID primitive.ObjectID, spaceID *primitive.ObjectID, oldRole, newRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryPermissions,
		EventType: audit.EventProjectRoleChanged,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"old_role": oldRole,
			"new_role": newRole,
		},
	})
}

// PermissionsChanged logs explicit override changes (grant, revoke, or
// reset) for a batch of permissions on one user.
func (l *Logger) PermissionsChanged(ctx context.Context, r *http.Request, actorID, targetUserID, projectID primitive.ObjectID, spaceID *primitive.ObjectID, action string, perms []string) {
	var eventType string
	switch action {
	case "grant":
		eventType = audit.EventPermissionGranted
	case "revoke":
		eventType = audit.EventPermissionRevoked
	case "reset":
		eventType = audit.EventPermissionReset
	default:
		return
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryPermissions,
		EventType: eventType,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"permissions": strings.Join(perms, ","),
		},
	})
}

// TemplateApplied logs a bulk role-template application across users.
func (l *Logger) TemplateApplied(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, spaceID *primitive.ObjectID, role string, userCount, failedCount int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryPermissions,
		EventType: audit.EventTemplateApplied,
		ActorID:   &actorID,
		ProjectID: &projectID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   failedCount == 0,
		Details: map[string]string{
			"role":         role,
			"user_count":   strconv.Itoa(userCount),
			"failed_count": strconv.Itoa(failedCount),
		},
	})
}

// --- Timesheet Events ---

// TimesheetSubmitted logs a weekly timesheet submission.
func (l *Logger) TimesheetSubmitted(ctx context.Context, r *http.Request, userID primitive.ObjectID, spaceID *primitive.ObjectID, weekStart string, totalMinutes int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTimesheets,
		EventType: audit.EventTimesheetSubmitted,
		UserID:    &userID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"week_start":    weekStart,
			"total_minutes": strconv.Itoa(totalMinutes),
		},
	})
}

// TimesheetReviewed logs an approve or reject decision.
func (l *Logger) TimesheetReviewed(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, spaceID *primitive.ObjectID, status, weekStart string) {
	eventType := audit.EventTimesheetApproved
	if status == "rejected" {
		eventType = audit.EventTimesheetRejected
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTimesheets,
		EventType: eventType,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		SpaceID:   spaceID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"status":     status,
			"week_start": weekStart,
		},
	})
}
