package domain

import "time"

// UserRole separates requesters from the support team.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleIT    UserRole = "IT"
	UserRoleAdmin UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleIT, UserRoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may work on tickets it does not own.
func (r UserRole) IsStaff() bool {
	return r == UserRoleIT || r == UserRoleAdmin
}

// User is an account that can submit or work on tickets. Guest and LIFF
// provisioned accounts are ordinary users with a synthetic email.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Department   string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LinkStatus tracks whether a LINE binding may receive notifications.
type LinkStatus string

const (
	LinkStatusUnverified LinkStatus = "UNVERIFIED"
	LinkStatusVerified   LinkStatus = "VERIFIED"
)

// LineLink binds a user to a LINE user id. A user has at most one link.
type LineLink struct {
	ID          int64
	UserID      int64
	LineUserID  string
	DisplayName string
	Status      LinkStatus
	VerifiedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Verified reports whether the link is eligible for notifications.
func (l *LineLink) Verified() bool {
	return l != nil && l.Status == LinkStatusVerified && l.LineUserID != ""
}

// Recipient is a user resolved together with a verified LINE id.
type Recipient struct {
	UserID     int64
	Name       string
	LineUserID string
}
