// Package repositories persists the stall's documents. Every store has a
// MongoDB implementation and an in-memory one with the same contract.
package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teastall/teastall/app/models"
)

// ErrNotFound is returned when no document matches. Malformed ids are
// reported the same way: they cannot match anything.
var ErrNotFound = errors.New("record not found")

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	Find(ctx context.Context, id string) (*models.Order, error)
	// List and ListByUser return newest first by createdAt.
	List(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	// Update writes only the fields OrderUpdate carries.
	Update(ctx context.Context, id string, u models.OrderUpdate) error
	Count(ctx context.Context) (int64, error)
	// Revenue sums totalAmount over orders whose status is in statuses.
	Revenue(ctx context.Context, statuses []string) (float64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	Find(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	Featured(ctx context.Context, limit int) ([]models.Product, error)
	Update(ctx context.Context, id string, u models.ProductUpdate) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	List(ctx context.Context) ([]models.Category, error)
	Delete(ctx context.Context, id string) error
}

type ReviewRepository interface {
	Create(ctx context.Context, r *models.Review) error
	List(ctx context.Context, limit int) ([]models.Review, error)
	// AverageRating returns the mean rating and how many reviews it covers.
	AverageRating(ctx context.Context) (float64, int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	Find(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, limit int) ([]models.Post, error)
	// ToggleLike adds or removes userID from likes and reports the new state.
	ToggleLike(ctx context.Context, id, userID string) (bool, error)
	SetReactions(ctx context.Context, id string, reactions map[string][]string) error
	AddComment(ctx context.Context, id string, c models.Comment) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// Upsert creates the user with role "user" unless it already exists.
	Upsert(ctx context.Context, externalID, email string) (*models.User, error)
	SetRoleByEmail(ctx context.Context, email, role string) error
	Count(ctx context.Context) (int64, error)
}

// Stores bundles one implementation of every repository.
type Stores struct {
	Orders     OrderRepository
	Products   ProductRepository
	Categories CategoryRepository
	Reviews    ReviewRepository
	Posts      PostRepository
	Users      UserRepository
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}
