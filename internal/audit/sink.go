// Package audit maintains the append-only simulation history. Every mutating
// operation of the NF components emits exactly one LogEntry through the Sink;
// the Tailer polls the same collection and feeds the log-stream endpoint.
package audit

import (
	"context"
	"time"

	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/storage"
)

// Sink appends immutable LogEntry records. Entries are the sole audit trail
// of the simulation and are never updated or deleted.
type Sink interface {
	// Append writes one log record. A store failure propagates to the
	// caller; the emitting operation treats it as fatal.
	Append(ctx context.Context, nf string, level string, message string, logContext map[string]any) error
}

// storeSink persists log entries into the logentry collection.
type storeSink struct {
	store storage.Store
}

// NewStoreSink creates a Sink backed by the given document store.
func NewStoreSink(store storage.Store) Sink {
	return &storeSink{store: store}
}

// Append implements Sink.Append.
func (sink *storeSink) Append(
	ctx context.Context,
	nf string,
	level string,
	message string,
	logContext map[string]any,
) error {
	if logContext == nil {
		logContext = map[string]any{}
	}

	entry := model.LogEntry{
		NF:        nf,
		Level:     level,
		Message:   message,
		Context:   logContext,
		CreatedAt: time.Now().UTC(),
	}

	if err := sink.store.CreateOne(ctx, model.CollectionLogEntry, entry); err != nil {
		return err
	}

	logger.AuditLog.Debugf("audit record appended nf=%s message=%q", nf, message)
	return nil
}
