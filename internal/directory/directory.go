package directory

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// UnknownAccountName is displayed for membership references that do not
// resolve to an account.
const UnknownAccountName = "Unknown"

var (
	// ErrEmptyDirectory is returned when the directory has no users.
	ErrEmptyDirectory = errors.New("directory: no users")
	// ErrDuplicateID is returned when two records share an id.
	ErrDuplicateID = errors.New("directory: duplicate id")
	// ErrInvalidDirectory wraps field validation failures.
	ErrInvalidDirectory = errors.New("directory: invalid record")
)

var validate = validator.New()

// Directory is the read-only collection of accounts and users. It is
// immutable after New and safe for concurrent use.
type Directory struct {
	accounts []Account
	users    []User
}

// New validates the records and builds a Directory. Order is preserved.
func New(accounts []Account, users []User) (*Directory, error) {
	if len(users) == 0 {
		return nil, ErrEmptyDirectory
	}
	seenAccounts := make(map[int64]struct{}, len(accounts))
	for _, account := range accounts {
		if err := validate.Struct(account); err != nil {
			return nil, fmt.Errorf("%w: account %d: %v", ErrInvalidDirectory, account.ID, err)
		}
		if _, ok := seenAccounts[account.ID]; ok {
			return nil, fmt.Errorf("%w: account %d", ErrDuplicateID, account.ID)
		}
		seenAccounts[account.ID] = struct{}{}
	}
	seenUsers := make(map[int64]struct{}, len(users))
	for _, user := range users {
		if err := validate.Struct(user); err != nil {
			return nil, fmt.Errorf("%w: user %d: %v", ErrInvalidDirectory, user.ID, err)
		}
		if _, ok := seenUsers[user.ID]; ok {
			return nil, fmt.Errorf("%w: user %d", ErrDuplicateID, user.ID)
		}
		seenUsers[user.ID] = struct{}{}
	}

	d := &Directory{
		accounts: make([]Account, len(accounts)),
		users:    make([]User, len(users)),
	}
	copy(d.accounts, accounts)
	for i, user := range users {
		user.Memberships = append([]Membership(nil), user.Memberships...)
		d.users[i] = user
	}
	return d, nil
}

// MustNew is like New but panics on error. Intended for static seeds.
func MustNew(accounts []Account, users []User) *Directory {
	d, err := New(accounts, users)
	if err != nil {
		panic(err)
	}
	return d
}

// FindOrDefault returns the first item matching pred, or def.
func FindOrDefault[T any](items []T, pred func(T) bool, def T) T {
	for _, item := range items {
		if pred(item) {
			return item
		}
	}
	return def
}

// Accounts returns all accounts in directory order.
func (d *Directory) Accounts() []Account {
	out := make([]Account, len(d.accounts))
	copy(out, d.accounts)
	return out
}

// Users returns all users in directory order.
func (d *Directory) Users() []User {
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

// Account looks up an account by id.
func (d *Directory) Account(id int64) (Account, bool) {
	for _, account := range d.accounts {
		if account.ID == id {
			return account, true
		}
	}
	return Account{}, false
}

// User looks up a user by id.
func (d *Directory) User(id int64) (User, bool) {
	for _, user := range d.users {
		if user.ID == id {
			return user, true
		}
	}
	return User{}, false
}

// FirstUser returns the first user. New guarantees there is one.
func (d *Directory) FirstUser() User {
	return d.users[0]
}

// FirstAccount returns the first account, if any.
func (d *Directory) FirstAccount() (Account, bool) {
	if len(d.accounts) == 0 {
		return Account{}, false
	}
	return d.accounts[0], true
}

// UserOrFirst resolves a user by id, falling back to the first user.
func (d *Directory) UserOrFirst(id int64) User {
	return FindOrDefault(d.users, func(u User) bool { return u.ID == id }, d.users[0])
}

// AccountName returns the account name or UnknownAccountName.
func (d *Directory) AccountName(id int64) string {
	if account, ok := d.Account(id); ok {
		return account.Name
	}
	return UnknownAccountName
}
