package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"wastewise-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// entityPtr constrains P to be *V implementing models.Entity.
type entityPtr[V any] interface {
	*V
	models.Entity
}

// baseRepository holds the CRUD plumbing shared by the Mongo repositories.
type baseRepository[V any, P entityPtr[V]] struct {
	collection *mongo.Collection
}

func (r *baseRepository[V, P]) insert(ctx context.Context, entity P) error {
	if entity.GetID().IsZero() {
		entity.SetID(primitive.NewObjectID())
	}
	if _, err := r.collection.InsertOne(ctx, entity); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *baseRepository[V, P]) findOne(ctx context.Context, filter interface{}) (P, error) {
	var entity V
	if err := r.collection.FindOne(ctx, filter).Decode(&entity); err != nil {
		return nil, translateError(err)
	}
	return &entity, nil
}

func (r *baseRepository[V, P]) findByID(ctx context.Context, id primitive.ObjectID) (P, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// replace overwrites the whole document.
func (r *baseRepository[V, P]) replace(ctx context.Context, entity P) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": entity.GetID()}, entity)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *baseRepository[V, P]) delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// list returns one page of matching documents plus the total match count.
func (r *baseRepository[V, P]) list(ctx context.Context, filter bson.M, page Page, sort bson.D) ([]V, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.collection.Name(), err)
	}

	findOptions := options.Find().SetSort(sort).SetSkip(page.Skip())
	if page.Limit > 0 {
		findOptions.SetLimit(int64(page.Limit))
	}
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("find %s: %w", r.collection.Name(), err)
	}
	defer cursor.Close(ctx)

	items := make([]V, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", r.collection.Name(), err)
	}
	return items, total, nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// containsPattern builds a case-insensitive substring regex filter value.
func containsPattern(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}
