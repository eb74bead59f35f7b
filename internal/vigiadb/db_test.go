package vigiadb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vigia-app/vigia/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "vigia.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func TestMigrationsInstallSeedFixtures(t *testing.T) {
	db := newTestDB(t)

	seeds, err := db.ListSeedReports()
	if err != nil {
		t.Fatalf("ListSeedReports() error = %v", err)
	}
	if len(seeds) != 3 {
		t.Fatalf("got %d seed reports, want 3", len(seeds))
	}

	wantCategories := []string{"Bache", "Semáforo", "Alcantarilla"}
	wantCounts := []int{0, 2, 5}
	for i, s := range seeds {
		if s.Category != wantCategories[i] {
			t.Errorf("seed %d category = %q, want %q", s.ID, s.Category, wantCategories[i])
		}
		if s.ConfirmationCount != wantCounts[i] {
			t.Errorf("seed %d confirmations = %d, want %d", s.ID, s.ConfirmationCount, wantCounts[i])
		}
		if s.ImageURL == "" {
			t.Errorf("seed %d has no image url", s.ID)
		}
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	seeds, err := db.ListSeedReports()
	if err != nil {
		t.Fatalf("ListSeedReports() error = %v", err)
	}
	if len(seeds) != 3 {
		t.Errorf("got %d seed reports after re-migration, want 3", len(seeds))
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sub := models.Submission{
		ID:          "0c26f850-5f68-4f0e-a0ce-6a6cbf4cfb0f",
		Address:     "0xabcd000000000000000000000000000000000001",
		Latitude:    "19.4",
		Longitude:   "-99.1",
		Description: "Bache profundo",
		Category:    "Bache",
		Status:      models.SubmissionPending,
		CreatedAt:   "2024-05-01T12:00:00Z",
	}
	if err := db.InsertSubmission(ctx, sub); err != nil {
		t.Fatalf("InsertSubmission() error = %v", err)
	}

	if err := db.UpdateSubmissionStatus(ctx, sub.ID, models.SubmissionConfirmed, "0xfeed"); err != nil {
		t.Fatalf("UpdateSubmissionStatus() error = %v", err)
	}

	subs, err := db.ListSubmissions(ctx, sub.Address)
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d submissions, want 1", len(subs))
	}
	if subs[0].Status != models.SubmissionConfirmed {
		t.Errorf("status = %q, want CONFIRMED", subs[0].Status)
	}
	if subs[0].TxHash != "0xfeed" {
		t.Errorf("txHash = %q, want 0xfeed", subs[0].TxHash)
	}

	// Other addresses see nothing.
	other, err := db.ListSubmissions(ctx, "0x0000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("ListSubmissions(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("got %d submissions for an unrelated address, want 0", len(other))
	}
}

func TestUpdateUnknownSubmission(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateSubmissionStatus(context.Background(), "missing", models.SubmissionFailed, "")
	if err == nil {
		t.Error("UpdateSubmissionStatus accepted an unknown id")
	}
}
