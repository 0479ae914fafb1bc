package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoSeqField          = "seq"
	mongoTransientTxnLabel = "TransientTransactionError"
)

// MongoCollection stores documents in a MongoDB collection using the id as _id.
type MongoCollection[T any] struct {
	coll *mongo.Collection
	spec CollectionSpec
}

// NewMongoCollection binds a collection handle from db.
func NewMongoCollection[T any](db *mongo.Database, spec CollectionSpec) (*MongoCollection[T], error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &MongoCollection[T]{coll: db.Collection(spec.Name), spec: spec}, nil
}

// EnsureIndexes creates the ordering index and one unique index per unique field.
func (c *MongoCollection[T]) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{{Keys: bson.D{{Key: mongoSeqField, Value: 1}}}}
	for _, field := range c.spec.Unique {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	if _, err := c.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure %s indexes: %w", c.spec.Name, err)
	}
	return nil
}

// Put upserts the document. seq is only written on insert so updates keep their position.
func (c *MongoCollection[T]) Put(ctx context.Context, id string, doc T) error {
	fields, err := toBSONFields(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", c.spec.Name, err)
	}
	update := bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{mongoSeqField: time.Now().UnixNano()},
	}
	_, err = c.coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("put %s %s: %w", c.spec.Name, id, ErrDuplicate)
		}
		return fmt.Errorf("put %s %s: %w", c.spec.Name, id, err)
	}
	return nil
}

// Get loads the document stored under id.
func (c *MongoCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return doc, ErrNotFound
		}
		return doc, fmt.Errorf("get %s %s: %w", c.spec.Name, id, err)
	}
	return doc, nil
}

// All returns every document in insertion order.
func (c *MongoCollection[T]) All(ctx context.Context) ([]T, error) {
	return c.find(ctx, bson.M{})
}

// Exists reports whether id is stored.
func (c *MongoCollection[T]) Exists(ctx context.Context, id string) (bool, error) {
	n, err := c.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("exists %s %s: %w", c.spec.Name, id, err)
	}
	return n > 0, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (c *MongoCollection[T]) Delete(ctx context.Context, id string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s %s: %w", c.spec.Name, id, err)
	}
	return nil
}

// FindBy returns documents whose field equals value.
func (c *MongoCollection[T]) FindBy(ctx context.Context, field, value string) ([]T, error) {
	return c.find(ctx, bson.M{field: value})
}

// Match returns documents where any of fields contains term, ignoring case.
func (c *MongoCollection[T]) Match(ctx context.Context, term string, fields ...string) ([]T, error) {
	if len(fields) == 0 {
		return []T{}, nil
	}
	return c.find(ctx, matchFilter(term, fields))
}

func (c *MongoCollection[T]) find(ctx context.Context, filter interface{}) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: mongoSeqField, Value: 1}})
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.spec.Name, err)
	}
	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.spec.Name, err)
	}
	return docs, nil
}

func matchFilter(term string, fields []string) bson.M {
	pattern := regexp.QuoteMeta(term)
	clauses := make(bson.A, 0, len(fields))
	for _, field := range fields {
		clauses = append(clauses, bson.M{field: bson.M{"$regex": pattern, "$options": "i"}})
	}
	return bson.M{"$or": clauses}
}

// toBSONFields encodes doc through its bson tags and drops _id, which is the filter key.
func toBSONFields(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "_id")
	return fields, nil
}

// MongoTransactor runs units of work in a MongoDB multi-document transaction.
// Requires a replica set or sharded cluster.
type MongoTransactor struct {
	client *mongo.Client
}

// NewMongoTransactor constructs a MongoTransactor.
func NewMongoTransactor(client *mongo.Client) *MongoTransactor {
	return &MongoTransactor{client: client}
}

// Run executes fn with a session context; nested calls join the running session.
func (t *MongoTransactor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorLabel(mongoTransientTxnLabel) {
		return fmt.Errorf("transaction aborted: %w: %w", ErrConflict, err)
	}
	return err
}
