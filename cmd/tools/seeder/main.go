package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/velanstores/backend-kadai/internal/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedAdmins(db)
	seedCatalog(db)
	seedCustomers(db)

	log.Println("Seeding completed successfully!")
}

func seedAdmins(db *sql.DB) {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "changeme"
		log.Println("SEED_ADMIN_PASSWORD not set, using default password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admins := []struct {
		Name  string
		Email string
	}{
		{"Store Admin", "admin@velanstores.com"},
		{"Meenakshi V", "meenakshi@velanstores.com"},
	}

	fmt.Println("Seeding Admin Users...")
	for _, a := range admins {
		_, err := db.Exec(`
			INSERT INTO admin_users (name, email, password_hash)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO NOTHING;
		`, a.Name, a.Email, hash)
		if err != nil {
			log.Printf("Failed to seed admin %s: %v", a.Email, err)
		}
	}
}

func seedCatalog(db *sql.DB) {
	categories := []struct {
		Name string
		Slug string
	}{
		{"Camphor", "camphor"},
		{"Incense Sticks", "incense-sticks"},
		{"Sambrani", "sambrani"},
		{"Lamp Oils", "lamp-oils"},
		{"Pooja Essentials", "pooja-essentials"},
	}

	fmt.Println("Seeding Categories...")
	catIDs := make(map[string]string)
	for _, c := range categories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug)
			VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name;
		`, c.Name, c.Slug)
		if err != nil {
			log.Printf("Failed to upsert category %s: %v", c.Name, err)
		}

		var id string
		if err := db.QueryRow("SELECT id FROM categories WHERE slug = $1", c.Slug).Scan(&id); err != nil {
			log.Printf("Failed to get ID for category %s: %v", c.Name, err)
			continue
		}
		catIDs[c.Slug] = id
	}

	// Base prices are paise per base unit. Units resolve against them at
	// read time through the pricing engine, so only the raw multiplier and
	// quantity are seeded here.
	type unit struct {
		Name         string
		Abbreviation string
		BaseQuantity string
		Multiplier   string
		IsDefault    bool
	}
	products := []struct {
		Name      string
		Slug      string
		Category  string
		BasePrice int64
		BaseUnit  string
		Image     string
		Units     []unit
	}{
		{
			"Pure Camphor Tablets", "pure-camphor-tablets", "camphor", 4000, "g",
			"https://images.unsplash.com/photo-1604608672516-f1b9b1d37076?w=800",
			[]unit{
				{"Gram", "g", "1", "1", true},
				{"50g Pouch", "pch", "50", "48", false},
				{"Box", "box", "500", "480", false},
			},
		},
		{
			"Camphor Bricks", "camphor-bricks", "camphor", 3500, "g",
			"https://images.unsplash.com/photo-1602082666824-c8e94a73ffcb?w=800",
			[]unit{
				{"Gram", "g", "1", "1", true},
				{"Brick", "brk", "100", "95", false},
			},
		},
		{
			"Sandalwood Incense Sticks", "sandalwood-incense-sticks", "incense-sticks", 250, "stick",
			"https://images.unsplash.com/photo-1602080973527-2dd8a04d6e07?w=800",
			[]unit{
				{"Stick", "stk", "1", "1", false},
				{"Pack of 20", "pk", "20", "18", true},
				{"Carton", "ctn", "240", "200", false},
			},
		},
		{
			"Rose Incense Sticks", "rose-incense-sticks", "incense-sticks", 200, "stick",
			"https://images.unsplash.com/photo-1518976024611-28bf4b48222e?w=800",
			[]unit{
				{"Stick", "stk", "1", "1", false},
				{"Pack of 20", "pk", "20", "18", true},
			},
		},
		{
			"Sambrani Cups", "sambrani-cups", "sambrani", 1200, "cup",
			"https://images.unsplash.com/photo-1608555855762-2b657eb9c348?w=800",
			[]unit{
				{"Cup", "cup", "1", "1", true},
				{"Dozen", "dz", "12", "11", false},
			},
		},
		{
			"Gingelly Lamp Oil", "gingelly-lamp-oil", "lamp-oils", 45, "ml",
			"https://images.unsplash.com/photo-1556910103-1c02745aae4d?w=800",
			[]unit{
				{"Millilitre", "ml", "1", "1", false},
				{"Litre Bottle", "ltr", "1000", "900", true},
			},
		},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		catID, ok := catIDs[p.Category]
		if !ok {
			log.Printf("Missing category ID for %s", p.Category)
			continue
		}

		var productID string
		err := db.QueryRow(`
			INSERT INTO products (slug, name, description, category_id, base_price, base_unit, image_url, is_active)
			VALUES ($1, $2, '', $3, $4, $5, $6, TRUE)
			ON CONFLICT (slug) DO UPDATE SET
				name = EXCLUDED.name,
				base_price = EXCLUDED.base_price,
				base_unit = EXCLUDED.base_unit,
				image_url = EXCLUDED.image_url
			RETURNING id;
		`, p.Slug, p.Name, catID, p.BasePrice, p.BaseUnit, p.Image).Scan(&productID)
		if err != nil {
			log.Printf("Failed to upsert product %s: %v", p.Slug, err)
			continue
		}

		for _, u := range p.Units {
			_, err := db.Exec(`
				INSERT INTO product_units (product_id, name, abbreviation, base_quantity, price_multiplier, is_default)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (product_id, name) DO UPDATE SET
					abbreviation = EXCLUDED.abbreviation,
					base_quantity = EXCLUDED.base_quantity,
					price_multiplier = EXCLUDED.price_multiplier,
					is_default = EXCLUDED.is_default;
			`, productID, u.Name, u.Abbreviation, u.BaseQuantity, u.Multiplier, u.IsDefault)
			if err != nil {
				log.Printf("Failed to upsert unit %s for %s: %v", u.Name, p.Slug, err)
			}
		}
	}
}

func seedCustomers(db *sql.DB) {
	customers := []struct {
		Name  string
		Email string
		Phone string
		City  string
	}{
		{"Murugan Stores", "orders@muruganstores.in", "+91 98400 12345", "Madurai"},
		{"Sri Lakshmi Traders", "lakshmi.traders@example.com", "+91 98841 67890", "Chennai"},
		{"Annapoorna Agencies", "annapoorna@example.com", "+91 94430 24680", "Coimbatore"},
	}

	fmt.Println("Seeding Customers...")
	for _, c := range customers {
		_, err := db.Exec(`
			INSERT INTO customers (name, email, phone, city)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM customers WHERE email = $2);
		`, c.Name, c.Email, c.Phone, c.City)
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Name, err)
		}
	}
}
