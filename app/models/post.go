package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a community feed entry.
type Post struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    string              `bson:"userId" json:"userId"`
	Content   string              `bson:"content" json:"content"`
	Image     string              `bson:"image,omitempty" json:"image,omitempty"`
	Video     string              `bson:"video,omitempty" json:"video,omitempty"`
	Likes     []string            `bson:"likes" json:"likes"`
	Reactions map[string][]string `bson:"reactions,omitempty" json:"reactions,omitempty"`
	Comments  []Comment           `bson:"comments" json:"comments"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`

	// Author is filled by feed listings only and never stored.
	Author *Author `bson:"author,omitempty" json:"author,omitempty"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    string             `bson:"userId" json:"userId"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Clone deep-copies the slices and reaction buckets. Likes and Comments are
// never nil on the copy, so an empty post encodes them as [].
func (p *Post) Clone() *Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	if c.Likes == nil {
		c.Likes = []string{}
	}
	c.Comments = slices.Clone(p.Comments)
	if c.Comments == nil {
		c.Comments = []Comment{}
	}
	if p.Reactions != nil {
		c.Reactions = make(map[string][]string, len(p.Reactions))
		for k, v := range p.Reactions {
			c.Reactions[k] = slices.Clone(v)
		}
	}
	if p.Author != nil {
		a := *p.Author
		c.Author = &a
	}
	return &c
}

// React moves userID onto emoji, removing it from any other bucket and
// deleting buckets left empty.
func (p *Post) React(userID, emoji string) {
	next := make(map[string][]string, len(p.Reactions)+1)
	for k, ids := range p.Reactions {
		var kept []string
		for _, id := range ids {
			if id != userID {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			next[k] = kept
		}
	}
	next[emoji] = append(next[emoji], userID)
	p.Reactions = next
}

// HasLiked reports whether userID is in Likes.
func (p *Post) HasLiked(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
