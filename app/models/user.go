package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User mirrors an identity issued elsewhere. ExternalID is the token subject
// and is what orders, posts and reviews reference.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalID string             `bson:"externalId" json:"externalId"`
	Email      string             `bson:"email" json:"email"`
	Role       string             `bson:"role" json:"role"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Author is the part of a User joined onto listed posts and reviews.
type Author struct {
	ExternalID string `bson:"externalId" json:"externalId"`
	Email      string `bson:"email" json:"email"`
}

// AuthorOf returns u's public fields.
func AuthorOf(u *User) *Author {
	return &Author{ExternalID: u.ExternalID, Email: u.Email}
}
