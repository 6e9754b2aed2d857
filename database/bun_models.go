package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunSubmission represents the submissions table for Bun ORM
type BunSubmission struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID         int       `bun:"id,pk,autoincrement"`
	ULID       string    `bun:"ulid,notnull,unique"` // Stored as string in DB
	SHA256     string    `bun:"sha256,notnull,unique"`
	FileType   string    `bun:"file_type,notnull"`
	PageCount  int       `bun:"page_count,notnull,default:0"`
	SubmitTime time.Time `bun:"submit_time,notnull,default:current_timestamp"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToSubmission converts BunSubmission to Submission
func (bs *BunSubmission) ToSubmission() (*Submission, error) {
	parsedULID, err := ulid.Parse(bs.ULID)
	if err != nil {
		return nil, err
	}

	return &Submission{
		ID:         bs.ID,
		ULID:       parsedULID,
		SHA256:     bs.SHA256,
		FileType:   bs.FileType,
		PageCount:  bs.PageCount,
		SubmitTime: bs.SubmitTime,
	}, nil
}

// FromSubmission converts Submission to BunSubmission
func FromSubmission(sub *Submission) *BunSubmission {
	return &BunSubmission{
		ID:         sub.ID,
		ULID:       sub.ULID.String(),
		SHA256:     sub.SHA256,
		FileType:   sub.FileType,
		PageCount:  sub.PageCount,
		SubmitTime: sub.SubmitTime,
	}
}

// BunPasswordCandidate represents the password_candidates table for Bun ORM.
// One row per (sha256, value); the unique index gives us cheap set-union
// semantics on insert.
type BunPasswordCandidate struct {
	bun.BaseModel `bun:"table:password_candidates,alias:pc"`

	ID        int       `bun:"id,pk,autoincrement"`
	SHA256    string    `bun:"sha256,notnull"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
