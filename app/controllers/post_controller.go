package controllers

import (
	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/ctx"
)

type PostController struct {
	posts *services.PostService
}

func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

type postRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
	Image   string `json:"image" validate:"nullable,max=500"`
	Video   string `json:"video" validate:"nullable,max=500"`
}

type postRef struct {
	PostID string `json:"postId" validate:"required,hex24"`
}

type reactRequest struct {
	PostID string `json:"postId" validate:"required,hex24"`
	Emoji  string `json:"emoji" validate:"required,max=16"`
}

type commentRequest struct {
	PostID  string `json:"postId" validate:"required,hex24"`
	Comment string `json:"comment" validate:"required,max=1000"`
}

func (pc *PostController) Index(c *ctx.Context) {
	posts, err := pc.posts.Feed(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(posts)
}

func (pc *PostController) Store(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req postRequest
	if !c.BindJSON(&req) {
		return
	}
	p := &models.Post{Content: req.Content, Image: req.Image, Video: req.Video}
	if err := pc.posts.Create(c.Context(), id.UserID, p); err != nil {
		fail(c, err)
		return
	}
	c.Created(p)
}

func (pc *PostController) Like(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req postRef
	if !c.BindJSON(&req) {
		return
	}
	liked, err := pc.posts.ToggleLike(c.Context(), req.PostID, id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]bool{"liked": liked})
}

func (pc *PostController) React(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req reactRequest
	if !c.BindJSON(&req) {
		return
	}
	reactions, err := pc.posts.React(c.Context(), req.PostID, id.UserID, req.Emoji)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{"reactions": reactions})
}

func (pc *PostController) Comment(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req commentRequest
	if !c.BindJSON(&req) {
		return
	}
	comment, err := pc.posts.Comment(c.Context(), req.PostID, id.UserID, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(comment)
}

// Destroy deletes a post. Admins only; the service enforces it.
func (pc *PostController) Destroy(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req postRef
	if !c.BindJSON(&req) {
		return
	}
	if err := pc.posts.Delete(c.Context(), id, req.PostID); err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]bool{"deleted": true})
}
