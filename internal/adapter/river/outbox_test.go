package river_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"

	riveradapter "github.com/neomorfeo/idledger/internal/adapter/river"
	"github.com/neomorfeo/idledger/internal/adapter/sqlite"
	"github.com/neomorfeo/idledger/internal/domain"
)

func setupRepo(t *testing.T) *sqlite.RecordRepository {
	t.Helper()

	repo, err := sqlite.New(t.TempDir() + "/river_test.db")
	if err != nil {
		t.Fatalf("opening test repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func setupClient(t *testing.T, repo *sqlite.RecordRepository) *riveradapter.Client {
	t.Helper()

	client, err := riveradapter.Setup(context.Background(), repo.DB(), nil)
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}

	return client
}

func startClient(t *testing.T, client *riveradapter.Client) {
	t.Helper()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func countJobs(t *testing.T, repo *sqlite.RecordRepository) int {
	t.Helper()

	var n int
	if err := repo.DB().QueryRow(`SELECT COUNT(*) FROM river_job WHERE kind = ?`, "identifier.recorded").Scan(&n); err != nil {
		t.Fatalf("counting jobs: %v", err)
	}
	return n
}

func TestOutboxRepository_Insert_StoresRecordAndJob(t *testing.T) {
	repo := setupRepo(t)
	client := setupClient(t, repo)
	outbox := riveradapter.NewOutboxRepository(repo, client)
	ctx := context.Background()

	if err := outbox.Insert(ctx, domain.NewRecord("v-1", domain.VariantV1, "", "")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	exists, err := outbox.Exists(ctx, "v-1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("record missing after Insert")
	}
	if n := countJobs(t, repo); n != 1 {
		t.Errorf("got %d queued jobs, want 1", n)
	}
}

func TestOutboxRepository_Insert_WorkerReceivesRecordData(t *testing.T) {
	repo := setupRepo(t)
	client := setupClient(t, repo)
	ctx := context.Background()

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	outbox := riveradapter.NewOutboxRepository(repo, client)
	rec := domain.NewRecord("ABC-6211A3F0C2B41-9F3A01BC", domain.VariantTimestamp, "order", "ABC")

	if err := outbox.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	select {
	case event := <-subscribeChan:
		if event.Job.Kind != "identifier.recorded" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "identifier.recorded")
		}
		// The args are stored as JSON; verify key fields are present.
		argsStr := string(event.Job.EncodedArgs)
		for _, want := range []string{
			`"event":"identifier_recorded"`,
			`"value":"ABC-6211A3F0C2B41-9F3A01BC"`,
			`"variant":"timestamp"`,
			`"category":"order"`,
			`"prefix":"ABC"`,
		} {
			if !strings.Contains(argsStr, want) {
				t.Errorf("encoded args missing %s, got: %s", want, argsStr)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestOutboxRepository_Insert_DuplicateEnqueuesNothing(t *testing.T) {
	repo := setupRepo(t)
	client := setupClient(t, repo)
	outbox := riveradapter.NewOutboxRepository(repo, client)
	ctx := context.Background()

	rec := domain.NewRecord("dup", domain.VariantV4, "", "")
	if err := outbox.Insert(ctx, rec); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := outbox.Insert(ctx, rec)
	var dupErr *domain.DuplicateIdentifierError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateIdentifierError, got %v", err)
	}
	if n := countJobs(t, repo); n != 1 {
		t.Errorf("got %d queued jobs, want 1", n)
	}
}

func TestOutboxRepository_Insert_JobFailureRollsBackRecord(t *testing.T) {
	repo := setupRepo(t)
	client := setupClient(t, repo)
	outbox := riveradapter.NewOutboxRepository(repo, client)
	ctx := context.Background()

	if _, err := repo.DB().Exec(`DROP TABLE river_job`); err != nil {
		t.Fatalf("dropping job table: %v", err)
	}

	err := outbox.Insert(ctx, domain.NewRecord("orphan", domain.VariantV4, "", ""))
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	exists, err := outbox.Exists(ctx, "orphan")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("record committed without its audit job")
	}
}
