// Package project maps one canonical user record into idempotent upserts
// across the five target collections: User, Brand, Program,
// ProgramMembership, and Task.
//
// Every step is independently idempotent, so a partially projected
// document is safe: the caller quarantines it as a database error and a
// later retry simply re-applies every upsert.
package project

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/intake/internal/canon"
	"github.com/roach88/intake/internal/store"
)

// Clock supplies the current time. Injected so tests get stable
// submitted_at/updated_at stamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// qualityIssueNoPrograms annotates users that arrived with an empty
// program list. A warning, not a failure.
const qualityIssueNoPrograms = "no_programs"

// Projector writes canonical records into the target store.
type Projector struct {
	store *store.Store
	clock Clock
}

// New creates a Projector over st.
func New(st *store.Store, clock Clock) *Projector {
	return &Projector{store: st, clock: clock}
}

// Project upserts u and its nested programs and tasks. Returns a
// *store.DatabaseError on any persistence failure; partial work is left in
// place because every upsert is keyed by a stable business id.
func (p *Projector) Project(ctx context.Context, u *canon.User) error {
	issues := []string{}
	if len(u.Programs) == 0 {
		issues = append(issues, qualityIssueNoPrograms)
	}

	err := p.store.UpsertUser(ctx, store.UserRecord{
		UserID:          u.UserID,
		Name:            u.Name,
		Email:           u.Email,
		InstagramHandle: u.InstagramHandle,
		TiktokHandle:    u.TiktokHandle,
		JoinedAt:        u.JoinedAt,
		Status:          "active",
		IsClean:         len(issues) == 0,
		QualityIssues:   issues,
		UpdatedAt:       p.clock.Now(),
	})
	if err != nil {
		return err
	}

	for _, prog := range u.Programs {
		// Programs missing an id or brand are unusable partial data,
		// skipped rather than failed.
		if prog.ProgramID == "" || prog.BrandName == "" {
			slog.Debug("skipping partial program",
				"user_id", u.UserID,
				"program_id", prog.ProgramID,
				"has_brand", prog.BrandName != "")
			continue
		}
		if err := p.projectProgram(ctx, u, prog); err != nil {
			return err
		}
	}

	return nil
}

func (p *Projector) projectProgram(ctx context.Context, u *canon.User, prog canon.Program) error {
	brand, err := p.store.FindOrCreateBrand(ctx, prog.BrandName)
	if err != nil {
		return err
	}

	if err := p.store.UpsertProgram(ctx, store.ProgramRecord{
		ProgramID: prog.ProgramID,
		BrandID:   brand.BrandID,
	}); err != nil {
		return err
	}

	// A document with no join evidence contributes the processing time;
	// the min merge keeps any earlier evidence already stored.
	joinedAt := p.clock.Now()
	if u.JoinedAt != nil {
		joinedAt = *u.JoinedAt
	}

	membershipID := store.MembershipID(u.UserID, prog.ProgramID)
	if err := p.store.UpsertMembership(ctx, store.MembershipRecord{
		MembershipID:    membershipID,
		UserID:          u.UserID,
		ProgramID:       prog.ProgramID,
		BrandID:         brand.BrandID,
		JoinedAt:        joinedAt,
		TasksCompleted:  len(prog.Tasks),
		SalesAttributed: prog.TotalSalesAttributed,
	}); err != nil {
		return err
	}

	for _, task := range prog.Tasks {
		if task.TaskID == "" {
			continue
		}

		platform := task.Platform
		if platform == "" {
			platform = canon.PlatformInstagram
		}

		if err := p.store.UpsertTask(ctx, store.TaskRecord{
			TaskID:         task.TaskID,
			UserID:         u.UserID,
			ProgramID:      prog.ProgramID,
			MembershipID:   membershipID,
			BrandID:        brand.BrandID,
			BrandName:      brand.Name,
			Platform:       platform,
			PostURL:        task.PostURL,
			Likes:          task.Likes,
			Comments:       task.Comments,
			Shares:         task.Shares,
			Reach:          task.Reach,
			EngagementRate: task.EngagementRate(),
			SubmittedAt:    p.clock.Now(),
		}); err != nil {
			return err
		}
	}

	slog.Debug("program projected",
		"user_id", u.UserID,
		"program_id", prog.ProgramID,
		"brand", brand.Name,
		"tasks", len(prog.Tasks))
	return nil
}
