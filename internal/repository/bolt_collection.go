package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.etcd.io/bbolt"
)

type boltTxKey struct{}

// boltRecord is the value stored per key; Seq keeps insertion order across upserts.
type boltRecord struct {
	Seq uint64          `json:"seq"`
	Doc json.RawMessage `json:"doc"`
}

// BoltCollection stores documents in a bbolt bucket named after the collection.
type BoltCollection[T any] struct {
	db     *bbolt.DB
	spec   CollectionSpec
	bucket []byte
}

// NewBoltCollection creates the bucket if needed and returns the collection.
func NewBoltCollection[T any](db *bbolt.DB, spec CollectionSpec) (*BoltCollection[T], error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	bucket := []byte(spec.Name)
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", spec.Name, err)
	}
	return &BoltCollection[T]{db: db, spec: spec, bucket: bucket}, nil
}

func (c *BoltCollection[T]) view(ctx context.Context, fn func(b *bbolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := ctx.Value(boltTxKey{}).(*bbolt.Tx); ok {
		return fn(tx.Bucket(c.bucket))
	}
	return c.db.View(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(c.bucket))
	})
}

func (c *BoltCollection[T]) update(ctx context.Context, fn func(b *bbolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := ctx.Value(boltTxKey{}).(*bbolt.Tx); ok && tx.Writable() {
		return fn(tx.Bucket(c.bucket))
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket(c.bucket))
	})
}

// Put upserts the document, rejecting values that collide on a unique field.
func (c *BoltCollection[T]) Put(ctx context.Context, id string, doc T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", c.spec.Name, err)
	}
	err = c.update(ctx, func(b *bbolt.Bucket) error {
		if err := c.checkUnique(b, id, payload); err != nil {
			return err
		}
		var seq uint64
		if existing := b.Get([]byte(id)); existing != nil {
			var rec boltRecord
			if err := json.Unmarshal(existing, &rec); err != nil {
				return err
			}
			seq = rec.Seq
		} else {
			next, err := b.NextSequence()
			if err != nil {
				return err
			}
			seq = next
		}
		encoded, err := json.Marshal(boltRecord{Seq: seq, Doc: payload})
		if err != nil {
			return err
		}
		return b.Put([]byte(id), encoded)
	})
	if err != nil {
		return fmt.Errorf("put %s %s: %w", c.spec.Name, id, err)
	}
	return nil
}

func (c *BoltCollection[T]) checkUnique(b *bbolt.Bucket, id string, payload []byte) error {
	if len(c.spec.Unique) == 0 {
		return nil
	}
	incoming, err := fieldsOf(payload)
	if err != nil {
		return err
	}
	return b.ForEach(func(k, v []byte) error {
		if string(k) == id {
			return nil
		}
		var rec boltRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		stored, err := fieldsOf(rec.Doc)
		if err != nil {
			return err
		}
		for _, field := range c.spec.Unique {
			if value := incoming[field]; value != "" && value == stored[field] {
				return ErrDuplicate
			}
		}
		return nil
	})
}

// Get loads the document stored under id.
func (c *BoltCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	err := c.view(ctx, func(b *bbolt.Bucket) error {
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		var rec boltRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		return json.Unmarshal(rec.Doc, &doc)
	})
	if err == ErrNotFound {
		return doc, err
	}
	if err != nil {
		return doc, fmt.Errorf("get %s %s: %w", c.spec.Name, id, err)
	}
	return doc, nil
}

// All returns every document in insertion order.
func (c *BoltCollection[T]) All(ctx context.Context) ([]T, error) {
	return c.scan(ctx, nil)
}

// Exists reports whether id is stored.
func (c *BoltCollection[T]) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := c.view(ctx, func(b *bbolt.Bucket) error {
		exists = b.Get([]byte(id)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("exists %s %s: %w", c.spec.Name, id, err)
	}
	return exists, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (c *BoltCollection[T]) Delete(ctx context.Context, id string) error {
	if err := c.update(ctx, func(b *bbolt.Bucket) error {
		return b.Delete([]byte(id))
	}); err != nil {
		return fmt.Errorf("delete %s %s: %w", c.spec.Name, id, err)
	}
	return nil
}

// FindBy returns documents whose field equals value.
func (c *BoltCollection[T]) FindBy(ctx context.Context, field, value string) ([]T, error) {
	return c.scan(ctx, func(fields map[string]string) bool {
		return fields[field] == value
	})
}

// Match returns documents where any of fields contains term, ignoring case.
func (c *BoltCollection[T]) Match(ctx context.Context, term string, fields ...string) ([]T, error) {
	needle := strings.ToLower(term)
	return c.scan(ctx, func(values map[string]string) bool {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(values[field]), needle) {
				return true
			}
		}
		return false
	})
}

func (c *BoltCollection[T]) scan(ctx context.Context, keep func(map[string]string) bool) ([]T, error) {
	var records []boltRecord
	err := c.view(ctx, func(b *bbolt.Bucket) error {
		return b.ForEach(func(_, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if keep != nil {
				values, err := fieldsOf(rec.Doc)
				if err != nil {
					return err
				}
				if !keep(values) {
					return nil
				}
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.spec.Name, err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	docs := make([]T, 0, len(records))
	for _, rec := range records {
		var doc T
		if err := json.Unmarshal(rec.Doc, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.spec.Name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// fieldsOf extracts the top-level string fields of a JSON document.
func fieldsOf(raw []byte) (map[string]string, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(generic))
	for key, value := range generic {
		if s, ok := value.(string); ok {
			out[key] = s
		}
	}
	return out, nil
}

// BoltTransactor runs units of work inside one read-write bbolt transaction.
type BoltTransactor struct {
	db *bbolt.DB
}

// NewBoltTransactor constructs a BoltTransactor.
func NewBoltTransactor(db *bbolt.DB) *BoltTransactor {
	return &BoltTransactor{db: db}
}

// Run executes fn in db.Update; any error rolls every write back.
func (t *BoltTransactor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(boltTxKey{}).(*bbolt.Tx); ok && tx.Writable() {
		return fn(ctx)
	}
	return t.db.Update(func(tx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, boltTxKey{}, tx))
	})
}
