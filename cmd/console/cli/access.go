// Package cli holds operator commands run through the console binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/acme-console/admin-console/internal/console"
	"github.com/acme-console/admin-console/internal/directory"
)

// AccessOptions defines available flags for the access report command.
type AccessOptions struct {
	File       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// AccessSummary describes the JSON response for the access report.
type AccessSummary struct {
	OK      bool           `json:"ok"`
	Users   []UserAccess   `json:"users"`
	Dangles []DanglingLink `json:"dangling_memberships"`
}

// UserAccess is the account scope a user gets when selected.
type UserAccess struct {
	UserID            int64   `json:"user_id"`
	Name              string  `json:"name"`
	Superuser         bool    `json:"superuser"`
	AvailableAccounts []int64 `json:"available_accounts"`
	InitialAccount    *int64  `json:"initial_account"`
}

// DanglingLink is a membership pointing at an account missing from the
// directory.
type DanglingLink struct {
	UserID    int64 `json:"user_id"`
	AccountID int64 `json:"account_id"`
}

// AccessCommand loads a directory and prints the account scope of every
// user. It exits 10 when memberships reference unknown accounts.
func AccessCommand(opts AccessOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	dir := directory.Seed()
	if path := strings.TrimSpace(opts.File); path != "" {
		loaded, err := directory.LoadFile(path)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "access report: %v\n", err)
			return 1
		}
		dir = loaded
	}

	summary := buildAccessSummary(dir)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "access report: encode json: %v\n", err)
			return 1
		}
	} else {
		renderAccessHuman(opts.Stdout, dir, summary)
	}
	if !summary.OK {
		return 10
	}
	return 0
}

func buildAccessSummary(dir *directory.Directory) AccessSummary {
	users := dir.Users()
	summary := AccessSummary{
		Users:   make([]UserAccess, 0, len(users)),
		Dangles: []DanglingLink{},
	}
	for _, user := range users {
		available := console.AvailableAccounts(dir, user)
		ids := make([]int64, len(available))
		for i, account := range available {
			ids[i] = account.ID
		}
		access := UserAccess{
			UserID:            user.ID,
			Name:              user.Name,
			Superuser:         user.IsSuperuser,
			AvailableAccounts: ids,
		}
		s := console.NewSession(dir)
		s.SelectUser(user.ID)
		if ref := s.ActiveAccountID(); ref.Valid {
			id := ref.ID
			access.InitialAccount = &id
		}
		summary.Users = append(summary.Users, access)

		for _, m := range user.Memberships {
			if _, ok := dir.Account(m.AccountID); !ok {
				summary.Dangles = append(summary.Dangles, DanglingLink{UserID: user.ID, AccountID: m.AccountID})
			}
		}
	}
	summary.OK = len(summary.Dangles) == 0
	return summary
}

func renderAccessHuman(out io.Writer, dir *directory.Directory, summary AccessSummary) {
	_, _ = fmt.Fprintf(out, "Access report for %d user(s) across %d account(s)\n", len(summary.Users), len(dir.Accounts()))
	for _, user := range summary.Users {
		names := make([]string, len(user.AvailableAccounts))
		for i, id := range user.AvailableAccounts {
			names[i] = dir.AccountName(id)
		}
		scope := "none"
		if len(names) > 0 {
			scope = strings.Join(names, ", ")
		}
		initial := console.NoAccountLabel
		if user.InitialAccount != nil {
			initial = dir.AccountName(*user.InitialAccount)
		}
		marker := ""
		if user.Superuser {
			marker = " [superuser]"
		}
		_, _ = fmt.Fprintf(out, " - %s (#%d)%s: %s; starts on %s\n", user.Name, user.UserID, marker, scope, initial)
	}
	if len(summary.Dangles) == 0 {
		_, _ = fmt.Fprintln(out, "All memberships reference known accounts.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d dangling membership(s):\n", len(summary.Dangles))
	for _, d := range summary.Dangles {
		_, _ = fmt.Fprintf(out, " - user #%d -> account #%d\n", d.UserID, d.AccountID)
	}
}
