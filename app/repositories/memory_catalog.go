package repositories

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teastall/teastall/app/models"
)

type (
	productDoc  = models.Product
	categoryDoc = models.Category
	reviewDoc   = models.Review
)

type memoryProducts struct {
	t *table[productDoc]
}

func productCreated(p productDoc) time.Time { return p.CreatedAt }

func (r *memoryProducts) Create(_ context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.t.insert(p.ID, *p)
	return nil
}

func (r *memoryProducts) Find(_ context.Context, id string) (*models.Product, error) {
	p, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *memoryProducts) List(_ context.Context) ([]models.Product, error) {
	return r.t.newest(productCreated, nil, 0), nil
}

func (r *memoryProducts) Featured(_ context.Context, limit int) ([]models.Product, error) {
	return r.t.newest(productCreated, func(p productDoc) bool { return p.Featured }, limit), nil
}

func (r *memoryProducts) Update(_ context.Context, id string, u models.ProductUpdate) error {
	return r.t.mutate(id, func(p *productDoc) {
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.Price != nil {
			p.Price = *u.Price
		}
		if u.Description != nil {
			p.Description = *u.Description
		}
		if u.CategoryID != nil {
			p.CategoryID = *u.CategoryID
		}
		if u.Image != nil {
			p.Image = *u.Image
		}
		if u.Stock != nil {
			p.Stock = *u.Stock
		}
		if u.Featured != nil {
			p.Featured = *u.Featured
		}
		p.UpdatedAt = u.UpdatedAt
	})
}

func (r *memoryProducts) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

func (r *memoryProducts) Count(_ context.Context) (int64, error) {
	return r.t.count(), nil
}

type memoryCategories struct {
	t *table[categoryDoc]
}

func (r *memoryCategories) Create(_ context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.t.insert(c.ID, *c)
	return nil
}

func (r *memoryCategories) List(_ context.Context) ([]models.Category, error) {
	out := r.t.newest(func(c categoryDoc) time.Time { return c.CreatedAt }, nil, 0)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryCategories) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

type memoryReviews struct {
	t        *table[reviewDoc]
	users    *memoryUsers
	products *memoryProducts
}

func reviewCreated(rv reviewDoc) time.Time { return rv.CreatedAt }

func (r *memoryReviews) Create(_ context.Context, rv *models.Review) error {
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	doc := *rv
	doc.Author, doc.Product = nil, nil
	r.t.insert(rv.ID, doc)
	return nil
}

func (r *memoryReviews) List(_ context.Context, limit int) ([]models.Review, error) {
	out := r.t.newest(reviewCreated, nil, limit)
	for i := range out {
		out[i].Author = r.users.author(out[i].UserID)
		if p, err := r.products.t.get(out[i].ProductID); err == nil {
			out[i].Product = &p
		}
	}
	return out, nil
}

func (r *memoryReviews) AverageRating(_ context.Context) (float64, int64, error) {
	all := r.t.newest(reviewCreated, nil, 0)
	if len(all) == 0 {
		return 0, 0, nil
	}
	var sum int
	for _, rv := range all {
		sum += rv.Rating
	}
	return float64(sum) / float64(len(all)), int64(len(all)), nil
}
