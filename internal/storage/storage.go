// Package storage provides the abstraction and implementations for the
// document store backing the core simulator. Every entity collection (ue,
// slice, policyrule, pdusession, nfservice, upfstate, logentry) lives behind
// the same narrow Store interface, so the NF components never touch a
// concrete database. The default backend keeps documents in memory; a Mongo
// backend is available for deployments that want persistence across restarts.
package storage

import (
	"context"
	"fmt"

	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/pkg/factory"
)

// Filter selects documents by field equality. A filter value matched against
// a stored array field matches when the array contains the value (Mongo
// array-equality semantics, mirrored by the memory backend). An empty filter
// matches every document.
type Filter map[string]any

// Store is the document store consumed by the NF components. Each individual
// operation is atomic at single-document granularity; multi-step procedures
// built on top of it are not (last-writer-wins, no optimistic concurrency).
// All operations are safe to call from concurrent goroutines.
type Store interface {
	// CreateOne inserts a new document into the named collection.
	CreateOne(ctx context.Context, collection string, document any) error

	// FindOne decodes the first document matching filter into out and
	// reports whether one was found. out must be a non-nil pointer.
	FindOne(ctx context.Context, collection string, filter Filter, out any) (bool, error)

	// FindMany decodes all documents matching filter into out, which must be
	// a pointer to a slice.
	FindMany(ctx context.Context, collection string, filter Filter, out any) error

	// UpdateOne applies set ($set semantics) to the first document matching
	// filter and reports whether a document matched.
	UpdateOne(ctx context.Context, collection string, filter Filter, set map[string]any) (bool, error)

	// EnsureOne inserts the given document if no document matches filter
	// ($setOnInsert upsert semantics) and reports whether it was created.
	// An existing match is left untouched.
	EnsureOne(ctx context.Context, collection string, filter Filter, insert any) (bool, error)

	// IncrementOne adds the given deltas ($inc semantics) to the numeric
	// fields of the first document matching filter. With upsert enabled, a
	// missing document is created from the filter's identity fields plus the
	// deltas.
	IncrementOne(ctx context.Context, collection string, filter Filter, inc map[string]int64, upsert bool) error

	// CountDocuments returns the number of documents matching filter.
	CountDocuments(ctx context.Context, collection string, filter Filter) (int64, error)

	// Close releases backend resources. It is a no-op for the memory backend.
	Close(ctx context.Context) error
}

// NewStoreFromConfig creates a Store based on the storage configuration.
func NewStoreFromConfig(ctx context.Context, storageConfig factory.StorageSection) (Store, error) {
	switch storageConfig.Driver {
	case "memory":
		logger.StorageLog.Infof("Using in-memory storage backend")
		return NewMemoryStore(), nil
	case "mongo":
		logger.StorageLog.Infof("Using MongoDB storage backend dsn=%s db=%s",
			storageConfig.DSN, storageConfig.Database)
		return NewMongoStore(ctx, storageConfig.DSN, storageConfig.Database)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", storageConfig.Driver)
	}
}
