package model

import "time"

// Role is one of the closed set of user roles.  Authorization checks compare
// against these constants only.
type Role string

const (
	RoleUser       Role = "user"
	RoleGuide      Role = "guide"
	RoleLeadGuide  Role = "lead-guide"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether r is an admin-level role that other admins
// cannot remove.
func (r Role) IsPrivileged() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// User represents a row of the `users` table.  PasswordHash is only filled
// by the explicit *WithPassword lookups and is never serialized.  Token
// fields hold SHA-256 digests, never raw tokens.
type User struct {
	ID                       uint64     `json:"id"`
	Name                     string     `json:"name"`
	Email                    string     `json:"email"`
	Photo                    string     `json:"photo"`
	Role                     Role       `json:"role"`
	PasswordHash             string     `json:"-"`
	IsActive                 bool       `json:"isActive"`
	IsEmailVerified          bool       `json:"isEmailVerified"`
	PasswordChangedAt        *time.Time `json:"-"`
	EmailVerificationToken   string     `json:"-"`
	EmailVerificationExpires *time.Time `json:"-"`
	PasswordResetToken       string     `json:"-"`
	PasswordResetExpires     *time.Time `json:"-"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// PasswordChangedAfter reports whether the password was changed after a
// session token issued at iat (Unix seconds).  Such tokens must be rejected.
func (u User) PasswordChangedAfter(iat int64) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat
}

// VerificationExpired reports whether the account is still unverified and
// its verification window has closed.
func (u User) VerificationExpired(now time.Time) bool {
	return !u.IsEmailVerified && u.EmailVerificationExpires != nil && u.EmailVerificationExpires.Before(now)
}

// AccountState is the lifecycle state derived from a user record.
type AccountState string

const (
	StateUnverified  AccountState = "unverified"
	StateExpired     AccountState = "expired"
	StateActive      AccountState = "active"
	StateDeactivated AccountState = "deactivated"
)

// State derives the account state at now.  Expired is an unverified
// account whose verification window closed; it is reaped on the next
// login.  Deleted users have no record.
func (u User) State(now time.Time) AccountState {
	switch {
	case u.VerificationExpired(now):
		return StateExpired
	case !u.IsEmailVerified:
		return StateUnverified
	case !u.IsActive:
		return StateDeactivated
	}
	return StateActive
}

// NewUser carries the fields needed to insert a user.  Password is plain
// text; the store hashes it.
type NewUser struct {
	Name     string
	Email    string
	Photo    string
	Role     Role
	Password string
}

// TokenField sets or clears a hashed single-use token.  A zero Hash clears
// both the digest and the expiry.
type TokenField struct {
	Hash    string
	Expires time.Time
}

// UserUpdate lists optional changes to a user.  Nil fields are left alone.
// Setting Password makes the store re-hash it and stamp PasswordChangedAt.
type UserUpdate struct {
	Name              *string
	Email             *string
	Photo             *string
	Role              *Role
	IsActive          *bool
	IsEmailVerified   *bool
	Password          *string
	VerificationToken *TokenField
	ResetToken        *TokenField
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Photo == nil && u.Role == nil &&
		u.IsActive == nil && u.IsEmailVerified == nil && u.Password == nil &&
		u.VerificationToken == nil && u.ResetToken == nil
}

// UserFilter narrows user listings.
type UserFilter struct {
	IsActive *bool
	Role     *Role
	Page     int
	Limit    int
}
