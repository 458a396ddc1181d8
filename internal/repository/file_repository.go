package repository

import (
	"context"
	"fmt"
	"time"

	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/pkg/database"
	app_errors "birthday-memory-app/pkg/errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoFileRepository struct {
	coll *mongo.Collection
}

func NewFileRepository(db *mongo.Database) FileRepository {
	return &MongoFileRepository{coll: db.Collection(database.FilesCollection)}
}

func (r *MongoFileRepository) Create(ctx context.Context, f *memory.File) error {
	if _, err := r.coll.InsertOne(ctx, toFileDoc(f)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return app_errors.ErrAlreadyExists
		}
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *MongoFileRepository) GetByID(ctx context.Context, id string) (*memory.File, error) {
	var d fileDoc
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return d.toDomain(), nil
}

func (r *MongoFileRepository) FindByIDs(ctx context.Context, ids []string) ([]*memory.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"id": bson.M{"$in": ids}})
}

func (r *MongoFileRepository) ListStagedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*memory.File, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"uploadDate": bson.M{"$lt": cutoff}}, opts)
}

func (r *MongoFileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if res.DeletedCount == 0 {
		return app_errors.ErrNotFound
	}
	return nil
}

func (r *MongoFileRepository) find(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOptions]) ([]*memory.File, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}
	var docs []fileDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	out := make([]*memory.File, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
