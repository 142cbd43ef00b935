package store

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// idNamespace is the UUIDv5 namespace all derived ids hash under. Derived
// ids are the backbone of idempotence: the same brand name or
// (user, program) pair must map to the same id in every run and process.
var idNamespace = uuid.NameSpaceDNS

// BrandID derives the stable id for a brand name. Names are NFC-normalized
// first so byte-level Unicode variants of the same name cannot mint two
// brands.
func BrandID(name string) string {
	return uuid.NewSHA1(idNamespace, []byte(norm.NFC.String(name))).String()
}

// MembershipID derives the stable id for a (user, program) pair.
func MembershipID(userID, programID string) string {
	return uuid.NewSHA1(idNamespace, []byte(userID+"-"+programID)).String()
}

// UserRecord is the persisted form of a user, including the data-quality
// annotation computed at ingest time.
type UserRecord struct {
	UserID          string
	Name            string
	Email           string
	InstagramHandle string
	TiktokHandle    string
	JoinedAt        *time.Time
	Status          string
	IsClean         bool
	QualityIssues   []string
	UpdatedAt       time.Time
}

// BrandRecord is a persisted brand.
type BrandRecord struct {
	BrandID string
	Name    string
}

// ProgramRecord is a persisted program and its owning brand.
type ProgramRecord struct {
	ProgramID string
	BrandID   string
}

// MembershipRecord is a persisted user x program membership.
type MembershipRecord struct {
	MembershipID    string
	UserID          string
	ProgramID       string
	BrandID         string
	JoinedAt        time.Time
	TasksCompleted  int
	SalesAttributed float64
}

// TaskRecord is a persisted task. BrandName is denormalized from the brand
// so read paths never need a join.
type TaskRecord struct {
	TaskID         string
	UserID         string
	ProgramID      string
	MembershipID   string
	BrandID        string
	BrandName      string
	Platform       string
	PostURL        string
	Likes          float64
	Comments       float64
	Shares         float64
	Reach          float64
	EngagementRate float64
	SubmittedAt    time.Time
}

// Quarantine statuses. fixed and ignored are terminal unless the record is
// explicitly deleted.
const (
	StatusFailed   = "failed"
	StatusRetrying = "retrying"
	StatusFixed    = "fixed"
	StatusIgnored  = "ignored"
)

// Quarantine error kinds.
const (
	ErrKindParse          = "json_parse_error"
	ErrKindValidation     = "validation_error"
	ErrKindTransformation = "transformation_error"
	ErrKindDatabase       = "database_error"
)

// QuarantineItem is a failed document held for operator correction and
// replay.
type QuarantineItem struct {
	ID           string
	FileName     string
	FilePath     string
	RawData      string
	ErrorType    string
	ErrorMessage string
	AttemptedAt  time.Time
	RetryCount   int
	Status       string
	FixedAt      *time.Time
	LastRetryAt  *time.Time
	Notes        string
}
