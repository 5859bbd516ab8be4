package domain

// Session is the authenticated caller, taken from a verified access token.
type Session struct {
	UserID string
	Email  string
	Role   string
}

// Roles assigned to sessions.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
