package core

import "time"

// MaxSessionsPerUser caps concurrent sessions per user. EnforceLimit evicts
// the oldest sessions down to cap-1 so a new registration never exceeds it.
const MaxSessionsPerUser = 5

// StaleSessionAge is the inactivity threshold after which a session is
// eligible for cleanup.
const StaleSessionAge = 7 * 24 * time.Hour

// DeviceClass is a coarse device/OS classification derived from a user agent.
type DeviceClass string

const (
	DeviceMobile       DeviceClass = "Mobile"
	DeviceTablet       DeviceClass = "Tablet"
	DeviceDesktop      DeviceClass = "Desktop"
	DeviceDesktopWin   DeviceClass = "Desktop - Windows"
	DeviceDesktopMac   DeviceClass = "Desktop - Mac"
	DeviceDesktopLinux DeviceClass = "Desktop - Linux"
)

// SessionRecord is one active session for a user, persisted in the store.
type SessionRecord struct {
	UserID     string      `json:"user_id"`
	SessionID  string      `json:"session_id"`
	DeviceInfo DeviceClass `json:"device_info"`
	UserAgent  string      `json:"user_agent"`
	CreatedAt  time.Time   `json:"created_at"`
	LastActive time.Time   `json:"last_active"`
}

// SuspicionReason explains why a user's session set was flagged.
type SuspicionReason string

const (
	SuspicionTooManySessions SuspicionReason = "too_many_sessions"
	SuspicionDeviceDiversity SuspicionReason = "device_diversity"
)

// SuspicionReport is the advisory result of the concurrent-session heuristic.
// It never blocks sign-in.
type SuspicionReport struct {
	Suspicious   bool            `json:"suspicious"`
	Reason       SuspicionReason `json:"reason,omitempty"`
	SessionCount int             `json:"session_count"`
}

// UserProfile is the profile document loaded after sign-in.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Currency    string    `json:"currency"`
	Locale      string    `json:"locale"`
	CreatedAt   time.Time `json:"created_at"`
}

// SignOutReason is the machine-readable reason carried on a forced sign-out
// redirect so the login view can explain what happened.
type SignOutReason string

const (
	SignOutUser         SignOutReason = "user"
	SignOutInvalidToken SignOutReason = "invalid-token"
	SignOutIdleTimeout  SignOutReason = "timeout"
)
