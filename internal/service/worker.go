package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// TaskError accumulates the per-item failures of a bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Progress is called after every processed item with the number of items
// done so far and the total.
type Progress func(done, total int)

// BulkIngestor loads large contact and link datasets using worker pools.
type BulkIngestor struct {
	service  *ComplianceService
	orgID    string
	workers  int
	progress Progress
}

// NewBulkIngestor creates a new BulkIngestor for one organization with the
// provided concurrency.
func NewBulkIngestor(service *ComplianceService, orgID string, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		service: service,
		orgID:   orgID,
		workers: workers,
	}
}

// WithProgress registers a callback invoked as items complete.
func (bi *BulkIngestor) WithProgress(fn Progress) *BulkIngestor {
	bi.progress = fn
	return bi
}

// IngestEntities upserts the provided contacts concurrently.
func (bi *BulkIngestor) IngestEntities(ctx context.Context, entities []EntityInput) error {
	return bi.run(ctx, len(entities), func(idx int) error {
		if _, err := bi.service.UpsertEntity(ctx, bi.orgID, entities[idx]); err != nil {
			return fmt.Errorf("contact %q: %w", entities[idx].ID, err)
		}
		return nil
	})
}

// IngestLinks creates the provided links concurrently. Contacts must be
// ingested first.
func (bi *BulkIngestor) IngestLinks(ctx context.Context, links []LinkInput) error {
	return bi.run(ctx, len(links), func(idx int) error {
		if _, err := bi.service.AddLink(ctx, bi.orgID, links[idx]); err != nil {
			return fmt.Errorf("link %q (%s -> %s): %w", links[idx].ID, links[idx].OwnerID, links[idx].OwnedID, err)
		}
		return nil
	})
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup
	var done atomic.Int64

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			err := workerFn(idx)
			if bi.progress != nil {
				bi.progress(int(done.Add(1)), total)
			}
			if err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return taskErr.asError()
}
