package seeders

import (
	"context"
	"time"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
)

func init() {
	Register("menu", SeedMenu)
}

type menuItem struct {
	name        string
	price       float64
	description string
	stock       int
	featured    bool
}

var menu = map[string][]menuItem{
	"Chai": {
		{"Masala Chai", 20, "Black tea boiled with milk, ginger and cardamom", 100, true},
		{"Adrak Chai", 20, "Strong ginger tea", 100, false},
		{"Elaichi Chai", 25, "Cardamom tea", 80, true},
		{"Kulhad Chai", 30, "Masala chai served in a clay cup", 60, true},
	},
	"Coffee": {
		{"Filter Coffee", 30, "South Indian decoction with frothed milk", 50, false},
	},
	"Snacks": {
		{"Samosa", 15, "Spiced potato pastry", 40, true},
		{"Bun Maska", 25, "Soft bun with butter", 30, false},
		{"Parle-G", 10, "A packet of glucose biscuits", 200, false},
	},
}

var menuOrder = []string{"Chai", "Coffee", "Snacks"}

// SeedMenu creates the demo categories and products. It does nothing when
// products already exist.
func SeedMenu(ctx context.Context, s *repositories.Stores) error {
	n, err := s.Products.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, name := range menuOrder {
		cat := &models.Category{Name: name, CreatedAt: now, UpdatedAt: now}
		if err := s.Categories.Create(ctx, cat); err != nil {
			return err
		}
		for _, item := range menu[name] {
			p := &models.Product{
				Name:        item.name,
				Price:       item.price,
				Description: item.description,
				CategoryID:  cat.ID.Hex(),
				Stock:       item.stock,
				Featured:    item.featured,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.Products.Create(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}
