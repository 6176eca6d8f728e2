package mailtemplate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on the "templates" collection.
type MongoStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoStore creates a MongoStore. Call EnsureIndexes once at startup.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("templates"),
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique index on name.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_unique"),
	})
	if err != nil {
		return fmt.Errorf("mailtemplate: ensure indexes: %w", err)
	}
	return nil
}

// Get finds a template by its hex id. Malformed ids are reported as not found.
func (s *MongoStore) Get(ctx context.Context, id string) (Template, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Template{}, ErrNotFound
	}

	var t Template
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Template{}, ErrNotFound
	}
	if err != nil {
		return Template{}, fmt.Errorf("mailtemplate: get %s: %w", id, err)
	}
	return t, nil
}

// List returns all templates, newest first.
func (s *MongoStore) List(ctx context.Context) ([]Template, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mailtemplate: list: %w", err)
	}
	defer cursor.Close(ctx)

	templates := []Template{}
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("mailtemplate: list decode: %w", err)
	}
	return templates, nil
}

// Create inserts a new template. All fields are required.
func (s *MongoStore) Create(ctx context.Context, in Input) (Template, error) {
	in = in.Normalize()
	if !in.Complete() {
		return Template{}, ErrInvalid
	}

	now := s.now().UTC()
	t := Template{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Subject:   in.Subject,
		HTMLBody:  in.HTMLBody,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.collection.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Template{}, ErrDuplicateName
		}
		return Template{}, fmt.Errorf("mailtemplate: create: %w", err)
	}
	return t, nil
}

// Update sets the non-empty fields of in and returns the updated document.
func (s *MongoStore) Update(ctx context.Context, id string, in Input) (Template, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Template{}, ErrNotFound
	}
	in = in.Normalize()
	if in.Empty() {
		return Template{}, ErrInvalid
	}

	set := bson.M{"updatedAt": s.now().UTC()}
	if in.Name != "" {
		set["name"] = in.Name
	}
	if in.Subject != "" {
		set["subject"] = in.Subject
	}
	if in.HTMLBody != "" {
		set["htmlBody"] = in.HTMLBody
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var t Template
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&t)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return Template{}, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return Template{}, ErrDuplicateName
	case err != nil:
		return Template{}, fmt.Errorf("mailtemplate: update %s: %w", id, err)
	}
	return t, nil
}

// Delete removes a template.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mailtemplate: delete %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
