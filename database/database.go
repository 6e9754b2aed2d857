package database

import (
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Submission is one processed file, keyed by its content hash. The same file
// may be submitted more than once; the row is upserted and the password
// candidate set only ever grows.
type Submission struct {
	ID         int
	ULID       ulid.ULID
	SHA256     string
	FileType   string
	PageCount  int
	SubmitTime time.Time
}

// Repository is the persistence surface the engine depends on. The concrete
// implementation is BunDB (sqlite or postgres) or the ephemeral postgres
// variant used in development.
type Repository interface {
	// SaveSubmission records (or refreshes) a submission row
	SaveSubmission(sub *Submission) error

	// GetSubmissionBySHA returns the stored submission, or nil when unseen
	GetSubmissionBySHA(sha256 string) (*Submission, error)

	// MergePasswordCandidates unions candidates into the stored set for the
	// submission; the stored set never shrinks
	MergePasswordCandidates(sha256 string, candidates []string) error

	// FetchPasswordCandidates returns the stored set, sorted and deduplicated
	FetchPasswordCandidates(sha256 string) ([]string, error)

	Close() error
}

// CalculateUUID generates a ULID from a timestamp
func CalculateUUID(newTime time.Time) (ulid.ULID, error) {
	newULID, err := ulid.New(ulid.Timestamp(newTime), rand.Reader)
	if err != nil {
		Logger.Error("Unable to generate ULID", "error", err)
		return newULID, err
	}
	return newULID, nil
}
