package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entities"
)

// Session data keys
const (
	SessionKeyEmail    = "email"
	SessionKeyName     = "name"
	SessionKeyUserType = "user_type"
	SessionKeyLoginAt  = "login_at"
	SessionKeyFlashes  = "flashes"
)

func init() {
	// Register types that will be stored in sessions
	gob.Register(entities.UserType(""))
	gob.Register(time.Time{})
	gob.Register([]Flash{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager. SQLite databases keep
// sessions in a sessions table next to the library data; other drivers keep
// them in process memory.
func NewSessionManager(sqlDB *sql.DB, driver string, cfg config.Auth) (*SessionManager, error) {
	sm := scs.New()

	if driver == config.DriverPostgres || sqlDB == nil {
		sm.Store = memstore.New()
	} else {
		_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
		if err != nil {
			return nil, err
		}
		sm.Store = sqlite3store.New(sqlDB)
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession stores the signed-in identity after password verification.
func (sm *SessionManager) CreateSession(r *http.Request, email, name string, userType entities.UserType) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyEmail, email)
	sm.Put(r.Context(), SessionKeyName, name)
	sm.Put(r.Context(), SessionKeyUserType, userType)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())
	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetEmail returns the signed-in email, or "" for anonymous sessions.
func (sm *SessionManager) GetEmail(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyEmail)
}

func (sm *SessionManager) GetName(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyName)
}

func (sm *SessionManager) GetUserType(r *http.Request) entities.UserType {
	userType, ok := sm.Get(r.Context(), SessionKeyUserType).(entities.UserType)
	if !ok {
		return ""
	}
	return userType
}

// IsAuthenticated returns true if the request has a signed-in session.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetEmail(r) != ""
}

// SessionData holds the session information for a request.
type SessionData struct {
	Email    string
	Name     string
	UserType entities.UserType
	LoginAt  time.Time
}

// GetSessionData retrieves all session data at once, nil when nobody is signed in.
func (sm *SessionManager) GetSessionData(r *http.Request) *SessionData {
	email := sm.GetEmail(r)
	if email == "" {
		return nil
	}

	loginAt, _ := sm.Get(r.Context(), SessionKeyLoginAt).(time.Time)

	return &SessionData{
		Email:    email,
		Name:     sm.GetName(r),
		UserType: sm.GetUserType(r),
		LoginAt:  loginAt,
	}
}

// Flash categories
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// AddFlash queues a message for the next rendered page.
func (sm *SessionManager) AddFlash(r *http.Request, category, message string) {
	flashes, _ := sm.Get(r.Context(), SessionKeyFlashes).([]Flash)
	sm.Put(r.Context(), SessionKeyFlashes, append(flashes, Flash{Category: category, Message: message}))
}

// PopFlashes returns and clears the queued messages.
func (sm *SessionManager) PopFlashes(r *http.Request) []Flash {
	flashes, _ := sm.Pop(r.Context(), SessionKeyFlashes).([]Flash)
	return flashes
}
