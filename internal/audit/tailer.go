package audit

import (
	"context"
	"sync"
	"time"

	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/storage"
)

// Tailer polls the logentry collection once per fixed interval and fans the
// newest record out to subscribers. It backs the SSE log-stream endpoint.
// Transient read failures are ignored and retried on the next tick; this is
// the one place in the simulator allowed to swallow store errors.
type Tailer interface {
	// Start launches the polling loop in a background goroutine. It returns
	// immediately after successful start; cancellation is signalled via Stop().
	Start(ctx context.Context) error

	// Stop requests the polling loop to stop and waits for it to exit.
	// It is safe to call Stop() multiple times.
	Stop(ctx context.Context) error

	// Subscribe registers a new subscriber. The returned cancel function
	// must be called when the subscriber goes away.
	Subscribe() (<-chan model.LogEntry, func())
}

// tailerImpl is the concrete implementation of Tailer.
type tailerImpl struct {
	store        storage.Store
	pollInterval time.Duration

	mutexForSubscribers sync.Mutex
	subscribers         map[int]chan model.LogEntry
	nextSubscriberID    int

	lastSeenCount int64

	startStopMutex sync.Mutex
	started        bool
	stopChannel    chan struct{}
	stoppedChannel chan struct{}
}

// NewTailer creates a Tailer polling the given store every pollInterval.
func NewTailer(store storage.Store, pollInterval time.Duration) Tailer {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &tailerImpl{
		store:          store,
		pollInterval:   pollInterval,
		subscribers:    make(map[int]chan model.LogEntry),
		stopChannel:    make(chan struct{}),
		stoppedChannel: make(chan struct{}),
	}
}

// Start implements Tailer.Start.
func (tailer *tailerImpl) Start(ctx context.Context) error {
	tailer.startStopMutex.Lock()
	defer tailer.startStopMutex.Unlock()

	if tailer.started {
		logger.AuditLog.Warn("Tailer.Start called more than once; ignoring subsequent call")
		return nil
	}

	tailer.started = true

	go tailer.runLoop()

	logger.AuditLog.Info("log tailer started")
	return nil
}

// Stop implements Tailer.Stop.
func (tailer *tailerImpl) Stop(ctx context.Context) error {
	tailer.startStopMutex.Lock()
	defer tailer.startStopMutex.Unlock()

	if !tailer.started {
		return nil
	}

	select {
	case <-tailer.stopChannel:
		// Already closing or closed.
	default:
		close(tailer.stopChannel)
	}

	select {
	case <-tailer.stoppedChannel:
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.AuditLog.Info("log tailer stopped")
	return nil
}

// Subscribe implements Tailer.Subscribe.
func (tailer *tailerImpl) Subscribe() (<-chan model.LogEntry, func()) {
	tailer.mutexForSubscribers.Lock()
	defer tailer.mutexForSubscribers.Unlock()

	id := tailer.nextSubscriberID
	tailer.nextSubscriberID++

	// Buffered so a slow consumer cannot stall the polling loop; overflow
	// drops the record for that subscriber only.
	channel := make(chan model.LogEntry, 16)
	tailer.subscribers[id] = channel

	cancel := func() {
		tailer.mutexForSubscribers.Lock()
		defer tailer.mutexForSubscribers.Unlock()
		if existing, ok := tailer.subscribers[id]; ok {
			delete(tailer.subscribers, id)
			close(existing)
		}
	}

	return channel, cancel
}

// runLoop executes the polling logic until stopChannel is closed.
func (tailer *tailerImpl) runLoop() {
	defer close(tailer.stoppedChannel)

	ticker := time.NewTicker(tailer.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tailer.stopChannel:
			return
		case <-ticker.C:
			tailer.processTick()
		}
	}
}

// processTick checks whether new log entries appeared since the last tick and,
// if so, delivers the latest one to all subscribers.
func (tailer *tailerImpl) processTick() {
	ctx, cancel := context.WithTimeout(context.Background(), tailer.pollInterval)
	defer cancel()

	count, countError := tailer.store.CountDocuments(ctx, model.CollectionLogEntry, storage.Filter{})
	if countError != nil {
		logger.AuditLog.Debugf("log tailer count failed, will retry: %v", countError)
		return
	}

	if count <= tailer.lastSeenCount {
		return
	}

	var entries []model.LogEntry
	if findError := tailer.store.FindMany(ctx, model.CollectionLogEntry, storage.Filter{}, &entries); findError != nil {
		logger.AuditLog.Debugf("log tailer fetch failed, will retry: %v", findError)
		return
	}
	if len(entries) == 0 {
		return
	}

	tailer.lastSeenCount = count
	latest := latestEntry(entries)

	tailer.mutexForSubscribers.Lock()
	defer tailer.mutexForSubscribers.Unlock()

	for _, channel := range tailer.subscribers {
		select {
		case channel <- latest:
		default:
			// Subscriber buffer full; drop for this subscriber.
		}
	}
}

// latestEntry picks the entry with the greatest CreatedAt, falling back to
// the last stored one on ties (insertion order in the memory backend).
func latestEntry(entries []model.LogEntry) model.LogEntry {
	latest := entries[0]
	for _, entry := range entries[1:] {
		if !entry.CreatedAt.Before(latest.CreatedAt) {
			latest = entry
		}
	}
	return latest
}
