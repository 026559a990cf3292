package model

import "time"

// Role names carried in the access token's "role" claim.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User represents an account as stored in the `users` table.  The
// password hash never leaves the process; handlers marshal users with
// the hash omitted.
//
// Fields:
//
//	ID           – primary key identifier.
//	Username     – unique login name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	IsAdmin      – whether the account may use admin endpoints.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Username     string    `json:"username"`   // users.username
	Email        string    `json:"email"`      // users.email
	PasswordHash string    `json:"-"`          // users.password_hash
	IsAdmin      bool      `json:"is_admin"`   // users.is_admin
	CreatedAt    time.Time `json:"created_at"` // users.created_at
}

// Role maps the admin flag to the role name used in tokens.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// UserPatch lists the optional fields of a profile update.  Nil fields
// are left untouched.  Password holds the already hashed value.
type UserPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	IsAdmin      *bool
}

// Empty reports whether no field is set.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.PasswordHash == nil && p.IsAdmin == nil
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Identity is the authenticated caller of a request.  It is built by the
// identity middleware from a verified access token and handed explicitly
// to every flow that needs to know who is acting.
type Identity struct {
	UserID   uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanAccess reports whether the caller may act on a resource owned by
// ownerID: admins may act on anything, other users only on their own.
func (i Identity) CanAccess(ownerID uint64) bool {
	return i.IsAdmin() || i.UserID == ownerID
}
