package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/vanshika/ownergraph/backend/internal/domain"
	"github.com/vanshika/ownergraph/backend/internal/repository"
)

func TestBulkIngestor_IngestsEntitiesThenLinks(t *testing.T) {
	svc, store := newTestService(t)

	entities := []EntityInput{{ID: "P-1", Kind: "individual"}}
	var links []LinkInput
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("C-%02d", i)
		entities = append(entities, EntityInput{ID: id, Kind: "company"})
		links = append(links, LinkInput{ID: "L-" + id, OwnerID: "P-1", OwnedID: id, Percentage: pct(100)})
	}

	var calls atomic.Int32
	var last atomic.Int32
	ingestor := NewBulkIngestor(svc, testOrg, 4).WithProgress(func(done, total int) {
		calls.Add(1)
		if done == total {
			last.Store(int32(total))
		}
	})

	if err := ingestor.IngestEntities(context.Background(), entities); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := ingestor.IngestLinks(context.Background(), links); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := calls.Load(); got != int32(len(entities)+len(links)) {
		t.Fatalf("expected one progress call per item, got %d", got)
	}
	if last.Load() != int32(len(links)) {
		t.Fatalf("expected the final progress call to report completion")
	}

	stored, err := store.ListLinks(context.Background(), testOrg, repository.ListLinksOptions{OwnerID: "P-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(stored) != len(links) {
		t.Fatalf("expected %d links, got %d", len(links), len(stored))
	}
}

func TestBulkIngestor_CollectsFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ingestor := NewBulkIngestor(svc, testOrg, 0)

	err := ingestor.IngestEntities(context.Background(), []EntityInput{
		{ID: "C-1", Kind: "company"},
		{ID: "C-2", Kind: "trust"},
		{ID: "", Kind: "company"},
	})
	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError, got %v", err)
	}
	if len(taskErr.Errors) != 2 {
		t.Fatalf("expected 2 failures, got %d: %v", len(taskErr.Errors), taskErr)
	}
	for _, e := range taskErr.Errors {
		if !errors.Is(e, domain.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", e)
		}
	}

	err = ingestor.IngestLinks(context.Background(), []LinkInput{{ID: "L-1", OwnerID: "P-9", OwnedID: "C-1"}})
	if !errors.As(err, &taskErr) || len(taskErr.Errors) != 1 || !errors.Is(taskErr.Errors[0], domain.ErrNotFound) {
		t.Fatalf("expected a single not-found failure, got %v", err)
	}
}

func TestBulkIngestor_StopsOnCancel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewBulkIngestor(svc, testOrg, 2).IngestEntities(ctx, []EntityInput{{ID: "C-1", Kind: "company"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBulkIngestor_StoreErrorsAreReported(t *testing.T) {
	store := &failingStore{Memory: repository.NewMemory(), createErr: errors.New("write failed")}
	svc := NewComplianceService(store, nil)
	ingestor := NewBulkIngestor(svc, testOrg, 1)

	if err := ingestor.IngestEntities(context.Background(), []EntityInput{{ID: "C-1", Kind: "company"}, {ID: "P-1", Kind: "individual"}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	err := ingestor.IngestLinks(context.Background(), []LinkInput{{OwnerID: "P-1", OwnedID: "C-1"}})
	if err == nil || err.Error() == "no errors" {
		t.Fatalf("expected store failure, got %v", err)
	}
}

func TestTaskErrorMessage(t *testing.T) {
	var te TaskError
	if te.asError() != nil {
		t.Fatalf("empty TaskError must be nil")
	}
	te.append(nil)
	te.append(errors.New("a"))
	if te.Error() != "a" {
		t.Fatalf("unexpected single message %q", te.Error())
	}
	te.append(errors.New("b"))
	if te.Error() != "multiple errors: a; b;" {
		t.Fatalf("unexpected message %q", te.Error())
	}
}
