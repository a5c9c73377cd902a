package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/pkg/auth"
)

type mongoPosts struct {
	col *mongo.Collection
}

func (r *mongoPosts) Create(ctx context.Context, p *models.Post) error {
	defer observe("posts.create")()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *mongoPosts) Find(ctx context.Context, id string) (*models.Post, error) {
	defer observe("posts.find")()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var p models.Post
	if err := findOne(ctx, r.col, bson.M{"_id": oid}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mongoPosts) List(ctx context.Context, limit int) ([]models.Post, error) {
	defer observe("posts.list")()
	return aggregateAll[models.Post](ctx, r.col, newestPipeline(limit, joinAuthor()))
}

// ToggleLike reads the post and then pulls or adds userID; two concurrent
// toggles by the same user can both observe the old state.
func (r *mongoPosts) ToggleLike(ctx context.Context, id, userID string) (bool, error) {
	defer observe("posts.like")()
	p, err := r.Find(ctx, id)
	if err != nil {
		return false, err
	}

	liked := !p.HasLiked(userID)
	op := "$addToSet"
	if !liked {
		op = "$pull"
	}
	update := bson.M{op: bson.M{"likes": userID}, "$set": bson.M{"updatedAt": time.Now().UTC()}}
	if err := updateByID(ctx, r.col, id, update); err != nil {
		return false, err
	}
	return liked, nil
}

func (r *mongoPosts) SetReactions(ctx context.Context, id string, reactions map[string][]string) error {
	defer observe("posts.react")()
	return updateByID(ctx, r.col, id, bson.M{"$set": bson.M{"reactions": reactions, "updatedAt": time.Now().UTC()}})
}

func (r *mongoPosts) AddComment(ctx context.Context, id string, c models.Comment) error {
	defer observe("posts.comment")()
	return updateByID(ctx, r.col, id, bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *mongoPosts) Delete(ctx context.Context, id string) error {
	defer observe("posts.delete")()
	return deleteByID(ctx, r.col, id)
}

type mongoUsers struct {
	col *mongo.Collection
}

func (r *mongoUsers) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	defer observe("users.find")()
	var u models.User
	if err := findOne(ctx, r.col, bson.M{"externalId": externalID}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUsers) Upsert(ctx context.Context, externalID, email string) (*models.User, error) {
	defer observe("users.upsert")()
	now := time.Now().UTC()
	update := bson.M{"$setOnInsert": bson.M{
		"externalId": externalID,
		"email":      email,
		"role":       auth.RoleUser,
		"createdAt":  now,
		"updatedAt":  now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"externalId": externalID}, update, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUsers) SetRoleByEmail(ctx context.Context, email, role string) error {
	defer observe("users.set_role")()
	res, err := r.col.UpdateMany(ctx, bson.M{"email": email},
		bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) Count(ctx context.Context) (int64, error) {
	defer observe("users.count")()
	return r.col.CountDocuments(ctx, bson.M{})
}
