package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/pkg/auth"
)

// FeedLimit caps the community feed.
const FeedLimit = 20

type PostService struct {
	posts repositories.PostRepository
}

func NewPostService(posts repositories.PostRepository) *PostService {
	return &PostService{posts: posts}
}

func (s *PostService) Feed(ctx context.Context) ([]models.Post, error) {
	return s.posts.List(ctx, FeedLimit)
}

func (s *PostService) Create(ctx context.Context, userID string, p *models.Post) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.UserID = userID
	p.Author = nil
	p.Likes = []string{}
	p.Comments = []models.Comment{}
	p.Reactions = nil
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.posts.Create(ctx, p); err != nil {
		return fmt.Errorf("services: create post: %w", err)
	}
	return nil
}

// ToggleLike reports whether userID likes the post after the call.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked, err := s.posts.ToggleLike(ctx, postID, userID)
	return liked, mapPostErr(err)
}

// React sets userID's single reaction on the post and returns the buckets.
func (s *PostService) React(ctx context.Context, postID, userID, emoji string) (map[string][]string, error) {
	p, err := s.posts.Find(ctx, postID)
	if err != nil {
		return nil, mapPostErr(err)
	}
	p.React(userID, emoji)
	if err := s.posts.SetReactions(ctx, postID, p.Reactions); err != nil {
		return nil, mapPostErr(err)
	}
	return p.Reactions, nil
}

func (s *PostService) Comment(ctx context.Context, postID, userID, text string) (*models.Comment, error) {
	c := models.Comment{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Comment:   text,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.posts.AddComment(ctx, postID, c); err != nil {
		return nil, mapPostErr(err)
	}
	return &c, nil
}

// Delete removes a post. Only admins may delete.
func (s *PostService) Delete(ctx context.Context, actor auth.Identity, postID string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return mapPostErr(s.posts.Delete(ctx, postID))
}

func mapPostErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}
