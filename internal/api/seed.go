package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
)

// SeedAccount is a login created by Seed
type SeedAccount struct {
	Email    string
	Password string
	Role     string
}

// SeedAccounts are the logins Seed creates
var SeedAccounts = []SeedAccount{
	{Email: "admin@storefront.local", Password: "admin123", Role: readmodel.RoleAdmin},
	{Email: "ada@example.com", Password: "password", Role: readmodel.RoleUser},
}

type seedProduct struct {
	name, description string
	price             int64
	stock             int
	category          string
}

var seedCategories = []struct {
	name, parent string
}{
	{"Grains", ""},
	{"Rice", "Grains"},
	{"Beans", "Grains"},
	{"Tubers", ""},
	{"Oils & Spices", ""},
}

var seedProducts = []seedProduct{
	{"Ofada Rice 5kg", "Unpolished local rice from Ogun State", 1500, 40, "Rice"},
	{"Long Grain Parboiled Rice 10kg", "Stone-free parboiled rice", 18500, 25, "Rice"},
	{"Honey Beans 2kg", "Oloyin brown beans", 4200, 30, "Beans"},
	{"Yellow Garri 4kg", "Crisp Ijebu garri", 3800, 50, "Grains"},
	{"Puna Yam (medium)", "Fresh tubers from Benue", 2500, 60, "Tubers"},
	{"Sweet Potatoes 3kg", "Orange-flesh sweet potatoes", 2100, 0, "Tubers"},
	{"Red Palm Oil 1L", "Cold-pressed palm oil", 2600, 35, "Oils & Spices"},
	{"Suya Spice 250g", "Yaji blend with groundnut", 1200, 80, "Oils & Spices"},
}

// Seed fills an empty backend with the demo catalog and accounts
func Seed(b *Backend) error {
	for _, acct := range SeedAccounts {
		first := "Ada"
		last := "Obi"
		if acct.Role == readmodel.RoleAdmin {
			first, last = "Store", "Admin"
		}
		if _, err := b.createUser(first, last, acct.Email, acct.Password, acct.Role); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", acct.Email, err)
		}
	}

	ids := make(map[string]int64)
	for _, c := range seedCategories {
		in := apiclient.CategoryInput{Name: c.name}
		if c.parent != "" {
			parent := ids[c.parent]
			in.ParentID = &parent
		}
		created, err := b.CreateCategory(in)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.name, err)
		}
		ids[c.name] = created.ID
	}

	for _, p := range seedProducts {
		_, err := b.CreateProduct(apiclient.ProductInput{
			Name:        p.name,
			Description: p.description,
			Price:       decimal.NewFromInt(p.price),
			Stock:       p.stock,
			CategoryID:  ids[p.category],
			IsActive:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.name, err)
		}
	}
	return nil
}
