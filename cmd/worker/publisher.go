package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/database"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/embed"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/tracing"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

const lockTTL = time.Minute

// errBusy is returned while another worker publishes the same record
var errBusy = errors.New("record is being published by another worker")

// RecordSource reads saved records
type RecordSource interface {
	GetRecord(ctx context.Context, id string) (*models.Record, error)
}

// ObjectStore receives published artefacts
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, objectName string, body []byte) error
}

// Locker serializes work on one record across workers
type Locker interface {
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// Publisher writes the embed artefacts of saved records to object storage
type Publisher struct {
	records     RecordSource
	objects     ObjectStore
	locks       Locker
	builder     *embed.Builder
	concurrency int
	logger      *logging.Logger
}

// NewPublisher creates a publisher uploading at most concurrency artefacts
// of a record at once
func NewPublisher(records RecordSource, objects ObjectStore, locks Locker, concurrency int, logger *logging.Logger) *Publisher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Publisher{
		records:     records,
		objects:     objects,
		locks:       locks,
		builder:     embed.NewBuilder(logger),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Handle publishes the artefacts of the record named by event. Records
// deleted since the event was sent, and records that cannot be built, are
// skipped; retrying would not change the outcome.
func (p *Publisher) Handle(ctx context.Context, event *models.RecordSavedEvent) error {
	span, ctx := tracing.StartSpan(ctx, "worker.publish")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "record_id", event.RecordID)

	start := time.Now()
	log := p.logger.WithRecordID(event.RecordID)
	resource := "publish:" + event.RecordID

	acquired, err := p.locks.AcquireLock(ctx, resource, lockTTL)
	if err != nil {
		tracing.LogError(span, err)
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return errBusy
	}
	defer func() {
		if err := p.locks.ReleaseLock(context.Background(), resource); err != nil {
			log.WarnWithErr("failed to release lock", err)
		}
	}()

	rec, err := p.records.GetRecord(ctx, event.RecordID)
	if errors.Is(err, database.ErrRecordNotFound) {
		log.Warn("record no longer exists, skipping")
		metrics.RecordEmbedPublished(string(event.Kind), "skipped", time.Since(start).Seconds())
		return nil
	}
	if err != nil {
		tracing.LogError(span, err)
		return err
	}

	artefacts, err := p.builder.Artefacts(*rec)
	if err != nil {
		tracing.LogError(span, err)
		log.WarnWithErr("record cannot be published, skipping", err)
		metrics.RecordEmbedPublished(string(rec.Kind), "invalid", time.Since(start).Seconds())
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, a := range artefacts {
		a := a
		g.Go(func() error {
			began := time.Now()
			err := p.objects.Put(gctx, a.Key, a.Body)
			log.LogStorageOperation("put", p.objects.Bucket(), a.Key, int64(len(a.Body)), time.Since(began), err)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", a.Key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.LogError(span, err)
		metrics.RecordEmbedPublished(string(rec.Kind), "failed", time.Since(start).Seconds())
		return err
	}

	metrics.RecordEmbedPublished(string(rec.Kind), "published", time.Since(start).Seconds())
	log.WithFields(map[string]interface{}{
		"kind":      rec.Kind,
		"artefacts": len(artefacts),
	}).Info("published artefacts")
	return nil
}
