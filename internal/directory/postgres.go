package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/acme-console/admin-console/internal/platform/db"
)

const (
	listAccountsSQL    = `SELECT id, name, email, is_active FROM accounts ORDER BY id`
	listUsersSQL       = `SELECT id, COALESCE(NULLIF(full_name, ''), email), email, is_active, is_superuser FROM users ORDER BY id`
	listMembershipsSQL = `SELECT user_id, account_id, role FROM memberships ORDER BY id`
)

// Querier is the subset of pgx used to read directory tables.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource reads the directory from the accounts, users and memberships
// tables. It never writes.
type PGSource struct {
	pool db.Beginner
}

// NewPGSource constructs a PGSource.
func NewPGSource(pool db.Beginner) *PGSource {
	return &PGSource{pool: pool}
}

// Load reads all three tables inside one read-only snapshot.
func (s *PGSource) Load(ctx context.Context) (*Directory, error) {
	var dir *Directory
	err := db.WithSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		dir, err = LoadFrom(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dir, nil
}

// LoadFrom reads the directory using q.
func LoadFrom(ctx context.Context, q Querier) (*Directory, error) {
	accounts, err := queryAccounts(ctx, q)
	if err != nil {
		return nil, err
	}
	users, err := queryUsers(ctx, q)
	if err != nil {
		return nil, err
	}
	memberships, err := queryMemberships(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Memberships = memberships[users[i].ID]
	}
	return New(accounts, users)
}

func queryAccounts(ctx context.Context, q Querier) ([]Account, error) {
	rows, err := q.Query(ctx, listAccountsSQL)
	if err != nil {
		return nil, fmt.Errorf("directory: query accounts: %w", err)
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.IsActive); err != nil {
			return nil, fmt.Errorf("directory: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: accounts rows: %w", err)
	}
	return accounts, nil
}

func queryUsers(ctx context.Context, q Querier) ([]User, error) {
	rows, err := q.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("directory: query users: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.IsActive, &u.IsSuperuser); err != nil {
			return nil, fmt.Errorf("directory: scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: users rows: %w", err)
	}
	return users, nil
}

func queryMemberships(ctx context.Context, q Querier) (map[int64][]Membership, error) {
	rows, err := q.Query(ctx, listMembershipsSQL)
	if err != nil {
		return nil, fmt.Errorf("directory: query memberships: %w", err)
	}
	defer rows.Close()
	byUser := make(map[int64][]Membership)
	for rows.Next() {
		var (
			userID int64
			m      Membership
			role   string
		)
		if err := rows.Scan(&userID, &m.AccountID, &role); err != nil {
			return nil, fmt.Errorf("directory: scan membership: %w", err)
		}
		m.Role = Role(role)
		byUser[userID] = append(byUser[userID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: memberships rows: %w", err)
	}
	return byUser, nil
}
