package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       float64            `bson:"price" json:"price"`
	Description string             `bson:"description" json:"description"`
	CategoryID  string             `bson:"categoryId" json:"categoryId"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	Featured    bool               `bson:"featured" json:"featured"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductUpdate replaces only the non-nil fields.
type ProductUpdate struct {
	Name        *string
	Price       *float64
	Description *string
	CategoryID  *string
	Image       *string
	Stock       *int
	Featured    *bool
	UpdatedAt   time.Time
}

type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"userId"`
	ProductID string             `bson:"productId" json:"productId"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Author and Product are joined in by List; a missing user or a
	// deleted product leaves them nil.
	Author  *Author  `bson:"author,omitempty" json:"author,omitempty"`
	Product *Product `bson:"product,omitempty" json:"product,omitempty"`
}
