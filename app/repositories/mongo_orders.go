package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teastall/teastall/app/models"
)

type mongoOrders struct {
	col *mongo.Collection
}

func (r *mongoOrders) Create(ctx context.Context, o *models.Order) error {
	defer observe("orders.create")()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, o)
	return err
}

func (r *mongoOrders) Find(ctx context.Context, id string) (*models.Order, error) {
	defer observe("orders.find")()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var o models.Order
	if err := findOne(ctx, r.col, bson.M{"_id": oid}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *mongoOrders) List(ctx context.Context) ([]models.Order, error) {
	defer observe("orders.list")()
	return findAll[models.Order](ctx, r.col, bson.M{}, options.Find().SetSort(newestFirst))
}

func (r *mongoOrders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	defer observe("orders.list_by_user")()
	return findAll[models.Order](ctx, r.col, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
}

func (r *mongoOrders) Update(ctx context.Context, id string, u models.OrderUpdate) error {
	defer observe("orders.update")()
	set := bson.M{"updatedAt": u.UpdatedAt}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.PaymentStatus != nil {
		set["paymentStatus"] = *u.PaymentStatus
	}
	if u.AdminReason != nil {
		set["adminReason"] = *u.AdminReason
	}
	return updateByID(ctx, r.col, id, bson.M{"$set": set})
}

func (r *mongoOrders) Count(ctx context.Context) (int64, error) {
	defer observe("orders.count")()
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *mongoOrders) Revenue(ctx context.Context, statuses []string) (float64, error) {
	defer observe("orders.revenue")()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$in": statuses}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalAmount"}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
