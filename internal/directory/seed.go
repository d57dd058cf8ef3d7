package directory

// Seed returns the built-in directory used when no external source is
// configured.
func Seed() *Directory {
	accounts := []Account{
		{ID: 1, Name: "Acme Corp", Email: "billing@acme.test", IsActive: true},
		{ID: 2, Name: "Northwind Traders", Email: "finance@northwind.test", IsActive: true},
		{ID: 3, Name: "Globex", Email: "ops@globex.test", IsActive: false},
	}
	users := []User{
		{
			ID:          1,
			Name:        "Super User",
			Email:       "superuser@test.com",
			IsActive:    true,
			IsSuperuser: true,
			Memberships: []Membership{
				{AccountID: 1, Role: RoleAdmin},
				{AccountID: 2, Role: RoleAdmin},
			},
		},
		{
			ID:          2,
			Name:        "Alex Admin",
			Email:       "admin@acme.test",
			IsActive:    true,
			Memberships: []Membership{{AccountID: 1, Role: RoleAdmin}},
		},
		{
			ID:       3,
			Name:     "Casey Editor",
			Email:    "editor@northwind.test",
			IsActive: true,
			Memberships: []Membership{
				{AccountID: 1, Role: RoleMember},
				{AccountID: 2, Role: RoleAdmin},
			},
		},
	}
	return MustNew(accounts, users)
}
