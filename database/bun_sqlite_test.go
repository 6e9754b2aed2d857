package database

import (
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"
)

func setupTestRepository(t *testing.T) *BunDB {
	t.Helper()
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	}
	db, err := NewSQLiteMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to open in-memory sqlite repository: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetSubmission(t *testing.T) {
	db := setupTestRepository(t)

	newULID, err := CalculateUUID(time.Now())
	if err != nil {
		t.Fatalf("Failed to generate ULID: %v", err)
	}

	sub := &Submission{
		ULID:       newULID,
		SHA256:     "1111111111111111111111111111111111111111111111111111111111111111",
		FileType:   "document/pdf",
		PageCount:  3,
		SubmitTime: time.Now(),
	}

	if err := db.SaveSubmission(sub); err != nil {
		t.Fatalf("SaveSubmission failed: %v", err)
	}

	got, err := db.GetSubmissionBySHA(sub.SHA256)
	if err != nil {
		t.Fatalf("GetSubmissionBySHA failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSubmissionBySHA returned nil for a saved submission")
	}
	if got.FileType != "document/pdf" || got.PageCount != 3 {
		t.Errorf("Stored submission mismatch: %+v", got)
	}

	missing, err := db.GetSubmissionBySHA("unseen")
	if err != nil {
		t.Fatalf("GetSubmissionBySHA failed for unseen hash: %v", err)
	}
	if missing != nil {
		t.Errorf("GetSubmissionBySHA returned %+v for an unseen hash, want nil", missing)
	}
}

func TestSaveSubmissionUpsert(t *testing.T) {
	db := setupTestRepository(t)

	newULID, _ := CalculateUUID(time.Now())
	sub := &Submission{
		ULID:       newULID,
		SHA256:     "2222222222222222222222222222222222222222222222222222222222222222",
		FileType:   "code/html",
		PageCount:  1,
		SubmitTime: time.Now(),
	}
	if err := db.SaveSubmission(sub); err != nil {
		t.Fatalf("First SaveSubmission failed: %v", err)
	}

	// Resubmitting the same hash updates the row instead of failing
	sub.PageCount = 4
	if err := db.SaveSubmission(sub); err != nil {
		t.Fatalf("Second SaveSubmission failed: %v", err)
	}

	got, err := db.GetSubmissionBySHA(sub.SHA256)
	if err != nil {
		t.Fatalf("GetSubmissionBySHA failed: %v", err)
	}
	if got.PageCount != 4 {
		t.Errorf("PageCount not updated on upsert: got %d, want 4", got.PageCount)
	}
}

func TestPasswordCandidateUnion(t *testing.T) {
	db := setupTestRepository(t)
	sha := "3333333333333333333333333333333333333333333333333333333333333333"

	if err := db.MergePasswordCandidates(sha, []string{"INFECTED", "PASS1234"}); err != nil {
		t.Fatalf("First merge failed: %v", err)
	}
	// Overlapping merge must not duplicate or drop anything
	if err := db.MergePasswordCandidates(sha, []string{"PASS1234", "ABC123"}); err != nil {
		t.Fatalf("Second merge failed: %v", err)
	}

	got, err := db.FetchPasswordCandidates(sha)
	if err != nil {
		t.Fatalf("FetchPasswordCandidates failed: %v", err)
	}
	want := []string{"ABC123", "INFECTED", "PASS1234"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FetchPasswordCandidates = %v, want %v", got, want)
	}
}

func TestPasswordCandidatesNeverShrink(t *testing.T) {
	db := setupTestRepository(t)
	sha := "4444444444444444444444444444444444444444444444444444444444444444"

	if err := db.MergePasswordCandidates(sha, []string{"SECRET1"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	// An empty merge is a no-op, not a reset
	if err := db.MergePasswordCandidates(sha, nil); err != nil {
		t.Fatalf("Empty merge failed: %v", err)
	}

	got, err := db.FetchPasswordCandidates(sha)
	if err != nil {
		t.Fatalf("FetchPasswordCandidates failed: %v", err)
	}
	if len(got) != 1 || got[0] != "SECRET1" {
		t.Errorf("Stored set changed after empty merge: %v", got)
	}
}

func TestPasswordCandidatesScopedBySubmission(t *testing.T) {
	db := setupTestRepository(t)

	if err := db.MergePasswordCandidates("aaaa", []string{"ONE"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := db.MergePasswordCandidates("bbbb", []string{"TWO"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	got, err := db.FetchPasswordCandidates("aaaa")
	if err != nil {
		t.Fatalf("FetchPasswordCandidates failed: %v", err)
	}
	if len(got) != 1 || got[0] != "ONE" {
		t.Errorf("Candidates leaked across submissions: %v", got)
	}
}
