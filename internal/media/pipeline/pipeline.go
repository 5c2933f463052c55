// Package pipeline runs the asynchronous classification job per stored
// asset: a buffered queue feeding a worker pool, bounded retries with
// exponential backoff, and a fail-safe flagged verdict when classification
// cannot complete.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/gostream/internal/media/entity"
)

var ErrClosed = errors.New("classification pipeline is closed")

type Store interface {
	Get(ctx context.Context, assetID string) (entity.Asset, error)
	UpdateStatus(ctx context.Context, assetID string, expected, next entity.AssetStatus) (entity.Asset, error)
}

type ContentOpener interface {
	Open(location string) (io.ReadSeekCloser, error)
}

type Publisher interface {
	Publish(event entity.StatusEvent)
}

type Config struct {
	Workers     int
	QueueSize   int
	MaxRetries  int
	BaseBackoff time.Duration
}

type Pipeline struct {
	store       Store
	content     ContentOpener
	classifier  Classifier
	events      Publisher
	workers     int
	maxRetries  int
	baseBackoff time.Duration

	mu       sync.RWMutex
	closed   bool
	jobs     chan string
	inflight sync.Map
	wg       sync.WaitGroup
}

func New(store Store, content ContentOpener, classifier Classifier, events Publisher, cfg Config) *Pipeline {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}

	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 512
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	return &Pipeline{
		store:       store,
		content:     content,
		classifier:  classifier,
		events:      events,
		workers:     workers,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		jobs:        make(chan string, queueSize),
	}
}

func (p *Pipeline) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Submit enqueues a classification job for the asset and returns once the
// job is queued. It never waits for the job to run, let alone complete.
func (p *Pipeline) Submit(ctx context.Context, assetID string) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}

	select {
	case p.jobs <- assetID:
		p.mu.RUnlock()
		return nil
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}
}

// Stop closes the queue and waits for in-flight jobs, bounded by ctx.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for assetID := range p.jobs {
		p.process(assetID)
	}
}

func (p *Pipeline) process(assetID string) {
	// at most one job in flight per asset
	if _, loaded := p.inflight.LoadOrStore(assetID, struct{}{}); loaded {
		slog.Info("skip duplicate classification job", "asset_id", assetID)
		return
	}
	defer p.inflight.Delete(assetID)

	ctx := context.Background()

	asset, err := p.store.Get(ctx, assetID)
	if err != nil {
		slog.Error("classification job for unknown asset", "asset_id", assetID, "error", err)
		return
	}

	if asset.Status != entity.AssetStatusPending {
		slog.Info("asset already classified", "asset_id", assetID, "status", asset.Status)
		return
	}

	verdict, err := p.classifyWithRetry(ctx, asset)
	if err != nil {
		slog.Error("classification failed after retries, resolving flagged",
			"asset_id", assetID, "retries", p.maxRetries, "error", err)
		verdict = entity.AssetStatusFlagged
	}

	updated, err := p.store.UpdateStatus(ctx, assetID, entity.AssetStatusPending, verdict)
	if err != nil {
		// lost the transition race; whoever won published the event
		slog.Warn("status update rejected", "asset_id", assetID, "verdict", verdict, "error", err)
		return
	}

	slog.Info("asset classified", "asset_id", updated.ID, "status", updated.Status)

	if p.events != nil {
		p.events.Publish(entity.StatusEvent{AssetID: updated.ID, Status: updated.Status})
	}
}

func (p *Pipeline) classifyWithRetry(ctx context.Context, asset entity.Asset) (entity.AssetStatus, error) {
	backoff := p.baseBackoff
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		verdict, err := p.classifyOnce(ctx, asset)
		if err == nil {
			return verdict, nil
		}

		lastErr = err
		if attempt == p.maxRetries {
			break
		}

		slog.Warn("classification attempt failed", "asset_id", asset.ID, "attempt", attempt, "error", err)
		if !sleepBackoff(backoff) {
			break
		}
		backoff *= 2
	}

	return "", lastErr
}

func (p *Pipeline) classifyOnce(ctx context.Context, asset entity.Asset) (entity.AssetStatus, error) {
	content, err := p.content.Open(asset.Location)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = content.Close()
	}()

	return p.classifier.Classify(ctx, content)
}

func sleepBackoff(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	<-timer.C
	return true
}
