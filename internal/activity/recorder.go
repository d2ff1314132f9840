package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"registra/internal/enrichment"
	"registra/internal/identity"
	"registra/internal/platform/metrics"
	"registra/pkg/requestcontext"
)

// Mirror is an optional secondary sink that receives every persisted record,
// best-effort.
type Mirror interface {
	Publish(ctx context.Context, record Record)
}

// pending carries the raw request metadata alongside the event so all
// enrichment cost (geo lookup, UA parsing) lands on the worker, not the
// request path.
type pending struct {
	event     Event
	clientIP  string
	userAgent string
	createdAt time.Time
}

// Recorder builds enriched activity records and persists them without
// blocking the caller. Record never returns an error and never blocks: when
// the queue is full the event is dropped and counted, matching the
// best-effort contract. There is no cancellation for in-flight writes; once
// dequeued they run to completion or fail silently.
type Recorder struct {
	store   Store
	geo     enrichment.Locator
	mirror  Mirror
	logger  *slog.Logger
	metrics *metrics.Metrics

	queue     chan pending
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithMirror attaches a secondary best-effort sink.
func WithMirror(m Mirror) RecorderOption {
	return func(r *Recorder) { r.mirror = m }
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder starts workers consuming the bounded queue. queueSize and
// workers fall back to sane minimums when non-positive.
func NewRecorder(store Store, geo enrichment.Locator, logger *slog.Logger, queueSize, workers int, opts ...RecorderOption) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if geo == nil {
		geo = enrichment.NoopLocator{}
	}

	r := &Recorder{
		store:  store,
		geo:    geo,
		logger: logger,
		queue:  make(chan pending, queueSize),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.run()
	}
	return r
}

// Record captures the request metadata and enqueues the event. It returns
// immediately; any downstream failure is logged and discarded, never
// surfaced to the caller's response path.
func (r *Recorder) Record(ctx context.Context, event Event) {
	p := pending{
		event:     event,
		clientIP:  requestcontext.ClientIP(ctx),
		userAgent: requestcontext.UserAgent(ctx),
		createdAt: time.Now().UTC(),
	}

	select {
	case r.queue <- p:
	default:
		// Queue overflow drops the record; backpressure here would block
		// request handling.
		if r.metrics != nil {
			r.metrics.ActivityDropped.Inc()
		}
		r.logger.Warn("activity queue full, record dropped", "action", event.Action)
	}
}

// Close stops accepting events and waits for the workers to drain the queue,
// bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	r.closeOnce.Do(func() { close(r.queue) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for p := range r.queue {
		r.persist(p)
	}
}

func (r *Recorder) persist(p pending) {
	record := r.build(p)

	// In-flight writes are decoupled from the originating request, so the
	// deadline is our own.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.Insert(ctx, record); err != nil {
		// Transient persistence failure: the event is lost, by contract.
		if r.metrics != nil {
			r.metrics.ActivityDropped.Inc()
		}
		r.logger.Error("activity record lost", "error", err, "action", record.Action)
		return
	}
	if r.metrics != nil {
		r.metrics.ActivityRecorded.Inc()
	}

	if r.mirror != nil {
		r.mirror.Publish(ctx, record)
	}
}

// build assembles the full record from the event and the captured request
// metadata. Every enrichment step degrades instead of failing.
func (r *Recorder) build(p pending) Record {
	role := string(p.event.ActorRole)
	if _, err := identity.ParseRole(role); err != nil {
		role = "unknown"
	}

	device := enrichment.ParseUserAgent(p.userAgent)

	return Record{
		ID:               uuid.New(),
		ActorID:          p.event.ActorID,
		ActorRole:        role,
		Action:           p.event.Action,
		TranslatedAction: p.event.Action.Sentence(),
		Description:      p.event.Description(),
		Entity:           p.event.Entity,
		IP:               p.clientIP,
		Geo:              r.geo.Locate(p.clientIP),
		Browser:          device.Browser,
		OS:               device.OS,
		Device:           device.DeviceKind,
		CreatedAt:        p.createdAt,
	}
}
