// Package console holds the admin console session state and its HTTP surface.
package console

import (
	"errors"

	"github.com/acme-console/admin-console/internal/directory"
)

// ErrAccountNotAvailable is returned when an account outside the current
// user's available accounts is selected.
var ErrAccountNotAvailable = errors.New("console: account not available to current user")

// AccountRef is an optional account id. The zero value means no account.
type AccountRef struct {
	ID    int64
	Valid bool
}

// NoAccount is the empty selection.
var NoAccount = AccountRef{}

// SomeAccount references the account with the given id.
func SomeAccount(id int64) AccountRef {
	return AccountRef{ID: id, Valid: true}
}

// State is the storable part of a Session.
type State struct {
	UserID  int64
	Account AccountRef
}

// Session tracks the current user and the account they act on behalf of.
// A Session is owned by a single caller and is not safe for concurrent use.
//
// Whenever the current user changes, the active account is reset so that a
// non-superuser is never left acting on an account they are not a member of.
type Session struct {
	dir             *directory.Directory
	currentUserID   int64
	activeAccountID AccountRef
}

// NewSession starts a session as the first user of the directory.
func NewSession(dir *directory.Directory) *Session {
	s := &Session{dir: dir}
	s.SelectUser(dir.FirstUser().ID)
	return s
}

// Restore rebuilds a session from stored state. Stored state that breaks the
// access invariant, for example after the directory changed between
// restarts, is repaired by re-running the user switch.
func Restore(dir *directory.Directory, st State) *Session {
	s := &Session{dir: dir, currentUserID: st.UserID, activeAccountID: st.Account}
	if !s.consistent() {
		s.SelectUser(st.UserID)
	}
	return s
}

// consistent reports whether the active account is one the current user may
// be acting on: any existing account for a superuser, a membership account
// otherwise.
func (s *Session) consistent() bool {
	if !s.activeAccountID.Valid {
		return true
	}
	user := s.CurrentUser()
	if user.IsSuperuser {
		_, exists := s.dir.Account(s.activeAccountID.ID)
		return exists
	}
	_, member := user.MembershipIDs()[s.activeAccountID.ID]
	return member
}

// State returns the storable state.
func (s *Session) State() State {
	return State{UserID: s.currentUserID, Account: s.activeAccountID}
}

// SelectUser switches the current user and resets the active account: the
// first directory account for superusers, otherwise the account of the
// user's first membership. Unknown ids never fail; the active account is
// cleared and CurrentUser falls back to the first user.
func (s *Session) SelectUser(nextUserID int64) {
	s.currentUserID = nextUserID
	next, ok := s.dir.User(nextUserID)
	switch {
	case !ok:
		s.activeAccountID = NoAccount
	case next.IsSuperuser:
		if first, ok := s.dir.FirstAccount(); ok {
			s.activeAccountID = SomeAccount(first.ID)
		} else {
			s.activeAccountID = NoAccount
		}
	case len(next.Memberships) > 0:
		s.activeAccountID = SomeAccount(next.Memberships[0].AccountID)
	default:
		s.activeAccountID = NoAccount
	}
}

// SelectActiveAccount sets the active account. Selecting NoAccount always
// succeeds; any other account must be among AvailableAccounts, otherwise
// ErrAccountNotAvailable is returned and the state is left unchanged.
func (s *Session) SelectActiveAccount(ref AccountRef) error {
	if ref.Valid && !CanAccess(s.dir, s.CurrentUser(), ref.ID) {
		return ErrAccountNotAvailable
	}
	s.activeAccountID = ref
	return nil
}

// CurrentUserID returns the raw selected user id, which may not resolve.
func (s *Session) CurrentUserID() int64 {
	return s.currentUserID
}

// ActiveAccountID returns the active account selection.
func (s *Session) ActiveAccountID() AccountRef {
	return s.activeAccountID
}

// CurrentUser resolves the current user, falling back to the first user.
func (s *Session) CurrentUser() directory.User {
	return s.dir.UserOrFirst(s.currentUserID)
}

// AvailableAccounts returns the accounts the current user may act on.
func (s *Session) AvailableAccounts() []directory.Account {
	return AvailableAccounts(s.dir, s.CurrentUser())
}

// ActiveAccount resolves the active account. There is no fallback: an
// absent or unknown id yields false.
func (s *Session) ActiveAccount() (directory.Account, bool) {
	if !s.activeAccountID.Valid {
		return directory.Account{}, false
	}
	return s.dir.Account(s.activeAccountID.ID)
}

// ActiveRole returns the current user's role in the active account. A
// superuser without an explicit membership has no role.
func (s *Session) ActiveRole() (directory.Role, bool) {
	account, ok := s.ActiveAccount()
	if !ok {
		return "", false
	}
	return s.CurrentUser().RoleIn(account.ID)
}

// AvailableAccounts returns every account for a superuser, otherwise the
// accounts referenced by the user's memberships. Output follows directory
// order and holds no duplicates.
func AvailableAccounts(dir *directory.Directory, user directory.User) []directory.Account {
	accounts := dir.Accounts()
	if user.IsSuperuser {
		return accounts
	}
	allowed := user.MembershipIDs()
	out := make([]directory.Account, 0, len(allowed))
	for _, account := range accounts {
		if _, ok := allowed[account.ID]; ok {
			out = append(out, account)
		}
	}
	return out
}

// CanAccess reports whether accountID is among the user's available accounts.
func CanAccess(dir *directory.Directory, user directory.User, accountID int64) bool {
	if _, ok := dir.Account(accountID); !ok {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	_, ok := user.MembershipIDs()[accountID]
	return ok
}
