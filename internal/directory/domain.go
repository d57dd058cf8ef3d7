package directory

// Role is the role a user holds inside an account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Account represents a tenant organization.
type Account struct {
	ID       int64  `json:"id" yaml:"id" validate:"required,gt=0"`
	Name     string `json:"name" yaml:"name" validate:"required"`
	Email    string `json:"email" yaml:"email" validate:"required,email"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

// Membership links a user to an account with a role. AccountID is a lookup
// reference and may point at an account missing from the directory.
type Membership struct {
	AccountID int64 `json:"account_id" yaml:"account_id" validate:"required,gt=0"`
	Role      Role  `json:"role" yaml:"role" validate:"required,oneof=admin member"`
}

// User represents a login identity.
type User struct {
	ID          int64        `json:"id" yaml:"id" validate:"required,gt=0"`
	Name        string       `json:"name" yaml:"name" validate:"required"`
	Email       string       `json:"email" yaml:"email" validate:"required,email"`
	IsActive    bool         `json:"is_active" yaml:"is_active"`
	IsSuperuser bool         `json:"is_superuser" yaml:"is_superuser"`
	Memberships []Membership `json:"memberships" yaml:"memberships" validate:"dive"`
}

// MembershipIDs returns the set of account ids the user is a member of.
func (u User) MembershipIDs() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(u.Memberships))
	for _, m := range u.Memberships {
		ids[m.AccountID] = struct{}{}
	}
	return ids
}

// RoleIn returns the role held in the account, if any. The first matching
// membership wins.
func (u User) RoleIn(accountID int64) (Role, bool) {
	for _, m := range u.Memberships {
		if m.AccountID == accountID {
			return m.Role, true
		}
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}
