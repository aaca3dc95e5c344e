// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging, CORS, body limits); AppConfig is everything specific to
// TempoHub. Values come from config files, TEMPOHUB_* environment
// variables, or command-line flags, loaded in LoadConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: tempohub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Base URL for OAuth callbacks, e.g. "https://tempohub.app"
	BaseURL string

	// Audit logging routing: "all" (db+log), "db", "log", or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Google OAuth sign-in
	GoogleClientID     string
	GoogleClientSecret string

	// Timer cleanup worker: forgotten running timers are force-stopped
	// once they exceed TimerMaxDuration.
	TimerCleanupInterval time.Duration
	TimerMaxDuration     time.Duration

	// First-run bootstrap: ensure a space and its owner account exist
	// so a fresh deployment can be signed into. Blank email disables.
	OwnerEmail     string
	OwnerName      string
	SpaceName      string
	SpaceSubdomain string
}
