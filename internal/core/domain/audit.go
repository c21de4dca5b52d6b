package domain

import "time"

// Audit actions recorded by the auth core.
const (
	AuditLogin      = "login"
	AuditQRLogin    = "qr_login"
	AuditRegister   = "register"
	AuditLogout     = "logout"
	AuditQREnroll   = "qr_enroll"
	AuditQRDisable  = "qr_disable"
	AuditRoleChange = "role_change"
)

// AuditEvent records the outcome of an authentication-related operation.
// UserID may be empty when the actor could not be resolved (e.g. a failed
// login against an unknown identifier).
type AuditEvent struct {
	UserID    string
	Action    string
	Outcome   string // "success" or "failure"
	Detail    string
	Timestamp time.Time
}
