package storage

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/free5gc/coresim/internal/logger"
)

// memoryStore keeps every collection as an insertion-ordered slice of plain
// documents (map[string]any) guarded by a single RWMutex. Insertion order
// makes "first match" deterministic, which the orchestration layer relies on
// for stable slice/policy/UPF tie-breaks in tests.
//
// Documents are normalized through a JSON round-trip on the way in and
// decoded the same way on the way out, so the memory backend sees the same
// document shape as the Mongo backend does through bson tags with matching
// field names.
type memoryStore struct {
	mutexForCollections sync.RWMutex
	collections         map[string][]map[string]any
}

// NewMemoryStore creates an empty in-memory store. It is the default backend
// and the one used by component tests.
func NewMemoryStore() Store {
	return &memoryStore{
		collections: make(map[string][]map[string]any),
	}
}

// CreateOne implements Store.CreateOne.
func (store *memoryStore) CreateOne(ctx context.Context, collection string, document any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := toDocument(document)
	if err != nil {
		return errors.Wrapf(err, "create in collection %q", collection)
	}

	store.mutexForCollections.Lock()
	defer store.mutexForCollections.Unlock()

	store.collections[collection] = append(store.collections[collection], normalized)
	return nil
}

// FindOne implements Store.FindOne.
func (store *memoryStore) FindOne(
	ctx context.Context,
	collection string,
	filter Filter,
	out any,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	store.mutexForCollections.RLock()
	defer store.mutexForCollections.RUnlock()

	for _, document := range store.collections[collection] {
		if matchesFilter(document, filter) {
			if err := decodeDocument(document, out); err != nil {
				return false, errors.Wrapf(err, "decode document from collection %q", collection)
			}
			return true, nil
		}
	}
	return false, nil
}

// FindMany implements Store.FindMany.
func (store *memoryStore) FindMany(
	ctx context.Context,
	collection string,
	filter Filter,
	out any,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mutexForCollections.RLock()
	defer store.mutexForCollections.RUnlock()

	matched := make([]map[string]any, 0)
	for _, document := range store.collections[collection] {
		if matchesFilter(document, filter) {
			matched = append(matched, document)
		}
	}

	// Decode while still holding the lock: the matched maps are the live
	// stored documents and UpdateOne/IncrementOne mutate them in place.
	if err := decodeDocument(matched, out); err != nil {
		return errors.Wrapf(err, "decode documents from collection %q", collection)
	}
	return nil
}

// UpdateOne implements Store.UpdateOne.
func (store *memoryStore) UpdateOne(
	ctx context.Context,
	collection string,
	filter Filter,
	set map[string]any,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	store.mutexForCollections.Lock()
	defer store.mutexForCollections.Unlock()

	for _, document := range store.collections[collection] {
		if !matchesFilter(document, filter) {
			continue
		}
		for field, value := range set {
			normalized, err := normalizeValue(value)
			if err != nil {
				return false, errors.Wrapf(err, "normalize %q for collection %q", field, collection)
			}
			document[field] = normalized
		}
		return true, nil
	}
	return false, nil
}

// EnsureOne implements Store.EnsureOne.
func (store *memoryStore) EnsureOne(
	ctx context.Context,
	collection string,
	filter Filter,
	insert any,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	store.mutexForCollections.Lock()
	defer store.mutexForCollections.Unlock()

	for _, document := range store.collections[collection] {
		if matchesFilter(document, filter) {
			return false, nil
		}
	}

	normalized, err := toDocument(insert)
	if err != nil {
		return false, errors.Wrapf(err, "ensure in collection %q", collection)
	}
	store.collections[collection] = append(store.collections[collection], normalized)
	return true, nil
}

// IncrementOne implements Store.IncrementOne.
func (store *memoryStore) IncrementOne(
	ctx context.Context,
	collection string,
	filter Filter,
	inc map[string]int64,
	upsert bool,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mutexForCollections.Lock()
	defer store.mutexForCollections.Unlock()

	for _, document := range store.collections[collection] {
		if !matchesFilter(document, filter) {
			continue
		}
		for field, delta := range inc {
			current, _ := document[field].(float64)
			document[field] = current + float64(delta)
		}
		return nil
	}

	if !upsert {
		logger.StorageLog.Debugf("increment matched nothing in collection %q and upsert is disabled", collection)
		return nil
	}

	// Build a fresh document from the filter's identity fields plus the deltas.
	document := make(map[string]any, len(filter)+len(inc))
	for field, value := range filter {
		normalized, err := normalizeValue(value)
		if err != nil {
			return errors.Wrapf(err, "normalize %q for collection %q", field, collection)
		}
		document[field] = normalized
	}
	for field, delta := range inc {
		document[field] = float64(delta)
	}
	store.collections[collection] = append(store.collections[collection], document)
	return nil
}

// CountDocuments implements Store.CountDocuments.
func (store *memoryStore) CountDocuments(
	ctx context.Context,
	collection string,
	filter Filter,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	store.mutexForCollections.RLock()
	defer store.mutexForCollections.RUnlock()

	var count int64
	for _, document := range store.collections[collection] {
		if matchesFilter(document, filter) {
			count++
		}
	}
	return count, nil
}

// Close implements Store.Close. The memory backend holds no external resources.
func (store *memoryStore) Close(ctx context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------
// Document helpers
// -----------------------------------------------------------------------------

// toDocument normalizes an arbitrary value into a plain document via a JSON
// round-trip.
func toDocument(value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, err
	}
	return document, nil
}

// decodeDocument copies a stored document (or slice of documents) into a
// typed destination.
func decodeDocument(document any, out any) error {
	raw, err := json.Marshal(document)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// normalizeValue passes a single value through the JSON round-trip so filter
// and $set values compare equal to stored document fields.
func normalizeValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// matchesFilter reports whether a stored document satisfies every filter
// field. A filter value matched against an array field matches when the
// array contains it.
func matchesFilter(document map[string]any, filter Filter) bool {
	for field, want := range filter {
		normalized, err := normalizeValue(want)
		if err != nil {
			return false
		}

		got, exists := document[field]
		if !exists {
			return false
		}

		if array, isArray := got.([]any); isArray {
			if _, wantIsArray := normalized.([]any); !wantIsArray {
				if !arrayContains(array, normalized) {
					return false
				}
				continue
			}
		}

		if !reflect.DeepEqual(got, normalized) {
			return false
		}
	}
	return true
}

func arrayContains(array []any, want any) bool {
	for _, element := range array {
		if reflect.DeepEqual(element, want) {
			return true
		}
	}
	return false
}
