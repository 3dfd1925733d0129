package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/google/uuid"

	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

const mongoCollection = "documents"

// MongoStore keeps documents in a MongoDB collection with a unique
// index on name. Revision bumps run server-side, so two editors pushing
// the same name concurrently still get distinct revisions.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the library
// collection. An empty database name defaults to "dlg4vtmb".
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = "dlg4vtmb"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "connect mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "ping mongodb")
	}

	coll := client.Database(database).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "ensure name index")
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Put upserts the document by name. The ID is assigned on first insert
// and never changes; the revision is incremented atomically on the
// server for every Put.
func (s *MongoStore) Put(ctx context.Context, doc *Document) error {
	if err := validateName(doc.Name); err != nil {
		return err
	}

	id := doc.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	update := bson.M{
		"$set": bson.M{
			"name":       doc.Name,
			"rows":       doc.Rows,
			"positions":  doc.Positions,
			"row_count":  len(doc.Rows),
			"updated_at": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{"_id": id},
		"$inc":         bson.M{"revision": int64(1)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored Document
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"name": doc.Name}, update, opts).Decode(&stored)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "store document %q", doc.Name)
	}
	doc.ID = stored.ID
	doc.Revision = stored.Revision
	doc.UpdatedAt = stored.UpdatedAt
	return nil
}

// Get retrieves a document by name.
func (s *MongoStore) Get(ctx context.Context, name string) (*Document, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	var doc Document
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.New(apperrors.ErrCodeDocumentNotFound, "no document named %q", name)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "load document %q", name)
	}
	return &doc, nil
}

// List returns a listing of every document, sorted by name. Bodies are
// projected away so listings stay cheap for large libraries.
func (s *MongoStore) List(ctx context.Context) ([]Info, error) {
	opts := options.Find().
		SetProjection(bson.M{"rows": 0, "positions": 0}).
		SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "list documents")
	}
	var infos []Info
	if err := cur.All(ctx, &infos); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "list documents")
	}
	return infos, nil
}

// Delete removes a document by name.
func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "remove document %q", name)
	}
	if res.DeletedCount == 0 {
		return apperrors.New(apperrors.ErrCodeDocumentNotFound, "no document named %q", name)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
