package repository

import (
	"context"
	"errors"
	"fmt"

	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/pkg/database"
	app_errors "birthday-memory-app/pkg/errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoMemoryRepository struct {
	coll *mongo.Collection
}

func NewMemoryRepository(db *mongo.Database) MemoryRepository {
	return &MongoMemoryRepository{coll: db.Collection(database.MemoriesCollection)}
}

func (r *MongoMemoryRepository) Create(ctx context.Context, m *memory.Memory) error {
	if _, err := r.coll.InsertOne(ctx, toMemoryDoc(m)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return app_errors.ErrAlreadyExists
		}
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

func (r *MongoMemoryRepository) GetByID(ctx context.Context, id string) (*memory.Memory, error) {
	var d memoryDoc
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return d.toDomain(), nil
}

func (r *MongoMemoryRepository) List(ctx context.Context) ([]*memory.Memory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	var docs []memoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode memories: %w", err)
	}
	out := make([]*memory.Memory, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoMemoryRepository) UpdateDetails(ctx context.Context, id string, displayName, description *string) (*memory.Memory, error) {
	set := bson.M{}
	if displayName != nil {
		set["displayName"] = *displayName
	}
	if description != nil {
		set["description"] = *description
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	return r.findAndSet(ctx, bson.M{"id": id}, set)
}

func (r *MongoMemoryRepository) SetAudioNote(ctx context.Context, id, key string) (string, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before memoryDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"audioNote": key}}, opts).Decode(&before)
	if err != nil {
		return "", translate(err)
	}
	return before.AudioNote, nil
}

func (r *MongoMemoryRepository) ReplaceGallery(ctx context.Context, id string, images []memory.GalleryImage, displayName, description *string) (*memory.Memory, error) {
	set := bson.M{
		"images":              toImageDocs(images),
		"metadata.imageCount": len(images),
	}
	if displayName != nil {
		set["displayName"] = *displayName
	}
	if description != nil {
		set["description"] = *description
	}
	return r.findAndSet(ctx, bson.M{"id": id, "type": string(memory.KindGallery)}, set)
}

func (r *MongoMemoryRepository) Delete(ctx context.Context, id string) (*memory.Memory, error) {
	var d memoryDoc
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return d.toDomain(), nil
}

func (r *MongoMemoryRepository) FindImages(ctx context.Context, ids []string) ([]*memory.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"id":       bson.M{"$in": ids},
		"type":     string(memory.KindImage),
		"mimeType": bson.M{"$regex": "^image/"},
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find image memories: %w", err)
	}
	var docs []memoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode image memories: %w", err)
	}
	out := make([]*memory.Memory, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoMemoryRepository) IsReferenced(ctx context.Context, imageID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"images.id": imageID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count gallery references: %w", err)
	}
	return n > 0, nil
}

func (r *MongoMemoryRepository) findAndSet(ctx context.Context, filter, set bson.M) (*memory.Memory, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d memoryDoc
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return d.toDomain(), nil
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return app_errors.ErrNotFound
	}
	return err
}
