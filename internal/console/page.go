package console

import "github.com/acme-console/admin-console/internal/directory"

// Labels shown when no active account resolves.
const (
	NoAccountLabel = "No account selected"
	NoAccountHint  = "Switch accounts to manage data"
)

// Chip is an "account name: role" badge.
type Chip struct {
	AccountName string         `json:"account_name"`
	Role        directory.Role `json:"role"`
}

// UserView is a user together with its rendered membership chips.
type UserView struct {
	directory.User
	Chips []Chip `json:"chips"`
}

// Page is everything the console page renders.
type Page struct {
	CurrentUser       UserView
	ActiveAccount     *directory.Account
	ActiveRole        directory.Role
	AvailableAccounts []directory.Account
	Accounts          []directory.Account
	Users             []UserView
	NoAccountLabel    string
	NoAccountHint     string
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	User              UserView            `json:"user"`
	AvailableAccounts []directory.Account `json:"available_accounts"`
	ActiveAccount     *directory.Account  `json:"active_account"`
	Role              *directory.Role     `json:"role"`
}

// BuildPage derives the console page from the session and directory.
func BuildPage(dir *directory.Directory, s *Session) Page {
	users := dir.Users()
	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = newUserView(dir, u)
	}
	page := Page{
		CurrentUser:       newUserView(dir, s.CurrentUser()),
		AvailableAccounts: s.AvailableAccounts(),
		Accounts:          dir.Accounts(),
		Users:             views,
		NoAccountLabel:    NoAccountLabel,
		NoAccountHint:     NoAccountHint,
	}
	if account, ok := s.ActiveAccount(); ok {
		page.ActiveAccount = &account
	}
	if role, ok := s.ActiveRole(); ok {
		page.ActiveRole = role
	}
	return page
}

// BuildSnapshot derives the JSON view of the session.
func BuildSnapshot(dir *directory.Directory, s *Session) Snapshot {
	snap := Snapshot{
		User:              newUserView(dir, s.CurrentUser()),
		AvailableAccounts: s.AvailableAccounts(),
	}
	if account, ok := s.ActiveAccount(); ok {
		snap.ActiveAccount = &account
	}
	if role, ok := s.ActiveRole(); ok {
		snap.Role = &role
	}
	return snap
}

func newUserView(dir *directory.Directory, u directory.User) UserView {
	chips := make([]Chip, len(u.Memberships))
	for i, m := range u.Memberships {
		chips[i] = Chip{AccountName: dir.AccountName(m.AccountID), Role: m.Role}
	}
	return UserView{User: u, Chips: chips}
}
