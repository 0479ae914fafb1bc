package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a write violates a unique field.
	ErrDuplicate = errors.New("duplicate document")
	// ErrConflict is returned when a concurrent transaction won the write and
	// the unit of work may be retried.
	ErrConflict = errors.New("concurrent write conflict")
)

// CollectionSpec names a document collection (table, bucket or Mongo collection)
// and the document fields that must hold unique values.
type CollectionSpec struct {
	Name   string
	Unique []string
}

var (
	StudentsCollection  = CollectionSpec{Name: "students", Unique: []string{"email"}}
	SchedulesCollection = CollectionSpec{Name: "class_schedules"}
)

var collectionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func (s CollectionSpec) validate() error {
	if !collectionNamePattern.MatchString(s.Name) {
		return fmt.Errorf("invalid collection name %q", s.Name)
	}
	for _, field := range s.Unique {
		if !collectionNamePattern.MatchString(field) {
			return fmt.Errorf("invalid unique field %q", field)
		}
	}
	return nil
}

// Collection is the schemaless document store contract shared by every backend.
// Documents are addressed by id; All and query results come back in insertion order.
type Collection[T any] interface {
	Put(ctx context.Context, id string, doc T) error
	Get(ctx context.Context, id string) (T, error)
	All(ctx context.Context) ([]T, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	// FindBy returns documents whose field equals value exactly.
	FindBy(ctx context.Context, field, value string) ([]T, error)
	// Match returns documents where any of fields contains term, case-insensitively.
	Match(ctx context.Context, term string, fields ...string) ([]T, error)
}

// Transactor runs fn inside a unit of work. Repositories called with the
// context handed to fn take part in the same transaction.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopTransactor runs fn directly. Each document write is atomic on its own but
// multi-document sequences are not.
type NoopTransactor struct{}

// Run calls fn with the unchanged context.
func (NoopTransactor) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// OperationObserver receives the latency of every repository call.
type OperationObserver interface {
	ObserveStoreOperation(collection, operation string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveStoreOperation(string, string, time.Duration) {}

func observerOrNop(o OperationObserver) OperationObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}
