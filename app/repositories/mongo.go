package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teastall/teastall/pkg/metrics"
)

// Collection names.
const (
	OrdersCollection     = "orders"
	ProductsCollection   = "products"
	CategoriesCollection = "categories"
	ReviewsCollection    = "reviews"
	PostsCollection      = "posts"
	UsersCollection      = "users"
)

// NewMongoStores builds every repository over db.
func NewMongoStores(db *mongo.Database) *Stores {
	return &Stores{
		Orders:     &mongoOrders{col: db.Collection(OrdersCollection)},
		Products:   &mongoProducts{col: db.Collection(ProductsCollection)},
		Categories: &mongoCategories{col: db.Collection(CategoriesCollection)},
		Reviews:    &mongoReviews{col: db.Collection(ReviewsCollection)},
		Posts:      &mongoPosts{col: db.Collection(PostsCollection)},
		Users:      &mongoUsers{col: db.Collection(UsersCollection)},
	}
}

// EnsureIndexes creates the indexes the read paths sort and filter on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		OrdersCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "featured", Value: 1}}},
		},
		PostsCollection:   {{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
		ReviewsCollection: {{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
		UsersCollection: {
			{Keys: bson.D{{Key: "externalId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("repositories: indexes on %s: %w", name, err)
		}
	}
	return nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

func observe(op string) func() {
	start := time.Now()
	return func() { metrics.ObserveDBQuery(op, start) }
}

// findOne decodes one document into dest, mapping no-match to ErrNotFound.
func findOne(ctx context.Context, col *mongo.Collection, filter any, dest any) error {
	err := col.FindOne(ctx, filter).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// aggregateAll runs pipeline and decodes every result; no rows yields an
// empty slice.
func aggregateAll[T any](ctx context.Context, col *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// joinAuthor looks up the user whose externalId equals the document's
// userId and sets it as author, or leaves author unset.
func joinAuthor() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from": UsersCollection,
			"let":  bson.M{"uid": "$userId"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$externalId", "$$uid"}}}},
				bson.M{"$project": bson.M{"_id": 0, "externalId": 1, "email": 1}},
				bson.M{"$limit": 1},
			},
			"as": "author",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$author", "preserveNullAndEmptyArrays": true}}},
	}
}

// newestPipeline sorts newest first, truncates to limit and appends joins.
func newestPipeline(limit int, joins ...[]bson.D) mongo.Pipeline {
	p := mongo.Pipeline{{{Key: "$sort", Value: newestFirst}}}
	if limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: int64(limit)}})
	}
	for _, j := range joins {
		p = append(p, j...)
	}
	return p
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts *options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// updateByID applies update and reports ErrNotFound when nothing matched.
func updateByID(ctx context.Context, col *mongo.Collection, id string, update any) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, col *mongo.Collection, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
