package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teastall/teastall/app/models"
)

type mongoProducts struct {
	col *mongo.Collection
}

func (r *mongoProducts) Create(ctx context.Context, p *models.Product) error {
	defer observe("products.create")()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *mongoProducts) Find(ctx context.Context, id string) (*models.Product, error) {
	defer observe("products.find")()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := findOne(ctx, r.col, bson.M{"_id": oid}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mongoProducts) List(ctx context.Context) ([]models.Product, error) {
	defer observe("products.list")()
	return findAll[models.Product](ctx, r.col, bson.M{}, options.Find().SetSort(newestFirst))
}

func (r *mongoProducts) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	defer observe("products.featured")()
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	return findAll[models.Product](ctx, r.col, bson.M{"featured": true}, opts)
}

func (r *mongoProducts) Update(ctx context.Context, id string, u models.ProductUpdate) error {
	defer observe("products.update")()
	set := bson.M{"updatedAt": u.UpdatedAt}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.CategoryID != nil {
		set["categoryId"] = *u.CategoryID
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.Featured != nil {
		set["featured"] = *u.Featured
	}
	return updateByID(ctx, r.col, id, bson.M{"$set": set})
}

func (r *mongoProducts) Delete(ctx context.Context, id string) error {
	defer observe("products.delete")()
	return deleteByID(ctx, r.col, id)
}

func (r *mongoProducts) Count(ctx context.Context) (int64, error) {
	defer observe("products.count")()
	return r.col.CountDocuments(ctx, bson.M{})
}

type mongoCategories struct {
	col *mongo.Collection
}

func (r *mongoCategories) Create(ctx context.Context, c *models.Category) error {
	defer observe("categories.create")()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *mongoCategories) List(ctx context.Context) ([]models.Category, error) {
	defer observe("categories.list")()
	return findAll[models.Category](ctx, r.col, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *mongoCategories) Delete(ctx context.Context, id string) error {
	defer observe("categories.delete")()
	return deleteByID(ctx, r.col, id)
}

type mongoReviews struct {
	col *mongo.Collection
}

func (r *mongoReviews) Create(ctx context.Context, rv *models.Review) error {
	defer observe("reviews.create")()
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, rv)
	return err
}

func (r *mongoReviews) List(ctx context.Context, limit int) ([]models.Review, error) {
	defer observe("reviews.list")()
	return aggregateAll[models.Review](ctx, r.col, newestPipeline(limit, joinAuthor(), joinProduct()))
}

// joinProduct resolves the review's hex productId against products._id.
// Ids that do not parse leave product unset.
func joinProduct() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from": ProductsCollection,
			"let": bson.M{"pid": bson.M{"$convert": bson.M{
				"input": "$productId", "to": "objectId", "onError": nil, "onNull": nil,
			}}},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$pid"}}}},
				bson.M{"$limit": 1},
			},
			"as": "product",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$product", "preserveNullAndEmptyArrays": true}}},
	}
}

func (r *mongoReviews) AverageRating(ctx context.Context) (float64, int64, error) {
	defer observe("reviews.average")()
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	var rows []struct {
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Avg, rows[0].Count, nil
}
