// Package historian drains the session action queue into Postgres in batches
// and closes out sessions that went quiet without a proper end.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/pokdeng/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns (nil, nil) when nothing
// arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.ActionRecord, error)
}

// Sink persists action records.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, instanceID string) (bool, error)
}

// Options tune batching and abandonment.
type Options struct {
	BatchSize     int
	FlushDelay    time.Duration
	PopTimeout    time.Duration
	Inactivity    time.Duration
	SweepInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = 500 * time.Millisecond
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = 3 * time.Second
	}
	if o.Inactivity <= 0 {
		o.Inactivity = 10 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
}

// Service moves records from a Source to a Sink.
type Service struct {
	src  Source
	sink Sink
	opts Options
	log  logrus.FieldLogger
	now  func() time.Time

	batchMu sync.Mutex
	batch   []cache.ActionRecord

	activityMu   sync.Mutex
	lastActivity map[string]time.Time // instance id -> last record seen
}

// New builds a Service. A nil logger uses the logrus standard logger.
func New(src Source, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	opts.applyDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		src:          src,
		sink:         sink,
		opts:         opts,
		log:          logger,
		now:          time.Now,
		batch:        make([]cache.ActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[string]time.Time),
	}
}

// Run consumes until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.log.Info("Historian started")
	s.readLoop(ctx)
	wg.Wait()

	// ctx is already done; give the last flush its own deadline.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("Historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, err := s.src.Pop(ctx, s.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Error("Failed to pop action record")
			// avoid spinning against a dead queue
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if rec == nil {
			continue
		}
		s.track(*rec)
		if s.append(*rec) {
			s.Flush(ctx)
		}
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// append adds a record and reports whether the batch is full.
func (s *Service) append(rec cache.ActionRecord) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, rec)
	return len(s.batch) >= s.opts.BatchSize
}

// Flush writes the pending batch in one transaction. A failed batch is put
// back at the front so it is retried on the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]cache.ActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.log.WithError(err).Errorf("Failed to flush %d actions", len(pending))
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.log.Debugf("Flushed %d actions to DB", len(pending))
}

// Pending is the number of records waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

func (s *Service) track(rec cache.ActionRecord) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	if rec.ActionType == cache.ActionSessionEnd {
		delete(s.lastActivity, rec.InstanceID)
		return
	}
	s.lastActivity[rec.InstanceID] = s.now()
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepInactive(ctx)
		}
	}
}

// SweepInactive marks every tracked session idle past the inactivity
// threshold as abandoned. Returns the instance ids it closed.
func (s *Service) SweepInactive(ctx context.Context) []string {
	now := s.now()
	var stale []string
	s.activityMu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.opts.Inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	// pending records for these sessions must land before the update
	if len(stale) > 0 {
		s.Flush(ctx)
	}

	var closed []string
	for _, id := range stale {
		ok, err := s.sink.MarkAbandoned(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("instance", id).Error("Failed to mark session abandoned")
			continue
		}
		if ok {
			closed = append(closed, id)
			s.log.WithField("instance", id).Info("Marked session abandoned due to inactivity")
		}
	}
	return closed
}
