package repositories

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/pkg/auth"
)

type postDoc = models.Post

type memoryPosts struct {
	t     *table[postDoc]
	users *memoryUsers
}

func (r *memoryPosts) Create(_ context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	doc := p.Clone()
	doc.Author = nil
	r.t.insert(p.ID, *doc)
	return nil
}

func (r *memoryPosts) Find(_ context.Context, id string) (*models.Post, error) {
	p, err := r.t.get(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (r *memoryPosts) List(_ context.Context, limit int) ([]models.Post, error) {
	rows := r.t.newest(func(p postDoc) time.Time { return p.CreatedAt }, nil, limit)
	out := make([]models.Post, len(rows))
	for i := range rows {
		out[i] = *rows[i].Clone()
		out[i].Author = r.users.author(out[i].UserID)
	}
	return out, nil
}

func (r *memoryPosts) ToggleLike(_ context.Context, id, userID string) (bool, error) {
	var liked bool
	err := r.t.mutate(id, func(p *postDoc) {
		liked = !p.HasLiked(userID)
		if liked {
			p.Likes = append(append([]string(nil), p.Likes...), userID)
		} else {
			kept := make([]string, 0, len(p.Likes))
			for _, u := range p.Likes {
				if u != userID {
					kept = append(kept, u)
				}
			}
			p.Likes = kept
		}
		p.UpdatedAt = time.Now().UTC()
	})
	return liked, err
}

func (r *memoryPosts) SetReactions(_ context.Context, id string, reactions map[string][]string) error {
	snapshot := (&models.Post{Reactions: reactions}).Clone().Reactions
	return r.t.mutate(id, func(p *postDoc) {
		p.Reactions = snapshot
		p.UpdatedAt = time.Now().UTC()
	})
}

func (r *memoryPosts) AddComment(_ context.Context, id string, c models.Comment) error {
	return r.t.mutate(id, func(p *postDoc) {
		p.Comments = append(append([]models.Comment(nil), p.Comments...), c)
		p.UpdatedAt = time.Now().UTC()
	})
}

func (r *memoryPosts) Delete(_ context.Context, id string) error {
	return r.t.remove(id)
}

type userDoc = models.User

type memoryUsers struct {
	mu         sync.RWMutex
	byExternal map[string]*userDoc
}

func (r *memoryUsers) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byExternal[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// author returns the joined author for externalID, or nil when no such
// user exists.
func (r *memoryUsers) author(externalID string) *models.Author {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byExternal[externalID]
	if !ok {
		return nil
	}
	return models.AuthorOf(u)
}

func (r *memoryUsers) Upsert(_ context.Context, externalID, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byExternal[externalID]
	if !ok {
		now := time.Now().UTC()
		u = &userDoc{
			ID:         primitive.NewObjectID(),
			ExternalID: externalID,
			Email:      email,
			Role:       auth.RoleUser,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		r.byExternal[externalID] = u
	}
	c := *u
	return &c, nil
}

func (r *memoryUsers) SetRoleByEmail(_ context.Context, email, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := false
	for _, u := range r.byExternal {
		if u.Email == email {
			u.Role = role
			u.UpdatedAt = time.Now().UTC()
			matched = true
		}
	}
	if !matched {
		return ErrNotFound
	}
	return nil
}

func (r *memoryUsers) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byExternal)), nil
}
