package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// UpsertUser inserts or replaces the user record keyed by user_id.
// Repeated application with the same document is a no-op beyond the
// updated_at stamp.
func (s *Store) UpsertUser(ctx context.Context, u UserRecord) error {
	issues, err := json.Marshal(u.QualityIssues)
	if err != nil {
		return &DatabaseError{Op: "upsert user", Err: fmt.Errorf("encode quality issues: %w", err)}
	}

	return s.exec(ctx, "upsert user", `
		INSERT INTO users
		(user_id, name, email, instagram_handle, tiktok_handle, joined_at, status, is_clean, quality_issues, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			instagram_handle = excluded.instagram_handle,
			tiktok_handle = excluded.tiktok_handle,
			joined_at = excluded.joined_at,
			status = excluded.status,
			is_clean = excluded.is_clean,
			quality_issues = excluded.quality_issues,
			updated_at = excluded.updated_at
	`,
		u.UserID,
		u.Name,
		u.Email,
		nullable(u.InstagramHandle),
		nullable(u.TiktokHandle),
		fmtTimePtr(u.JoinedAt),
		u.Status,
		u.IsClean,
		string(issues),
		fmtTime(u.UpdatedAt),
	)
}

// FindOrCreateBrand resolves a brand name to its derived stable id,
// creating the brand row on first sight. The returned record always
// carries the derived id, so callers never need a follow-up read.
func (s *Store) FindOrCreateBrand(ctx context.Context, name string) (BrandRecord, error) {
	rec := BrandRecord{BrandID: BrandID(name), Name: name}
	err := s.exec(ctx, "find or create brand", `
		INSERT INTO brands (brand_id, name)
		VALUES (?, ?)
		ON CONFLICT(brand_id) DO UPDATE SET name = excluded.name
	`, rec.BrandID, rec.Name)
	if err != nil {
		return BrandRecord{}, err
	}
	return rec, nil
}

// UpsertProgram inserts or updates a program keyed by program_id,
// associating it with the owning brand.
func (s *Store) UpsertProgram(ctx context.Context, p ProgramRecord) error {
	return s.exec(ctx, "upsert program", `
		INSERT INTO programs (program_id, brand_id)
		VALUES (?, ?)
		ON CONFLICT(program_id) DO UPDATE SET brand_id = excluded.brand_id
	`, p.ProgramID, p.BrandID)
}

// UpsertMembership inserts or updates the (user, program) membership.
// Counters are set from the incoming document; joined_at merges by
// minimum, so a late-arriving earlier-dated source file retroactively
// lowers the stored value and a later-dated one never raises it. RFC 3339
// UTC text compares lexicographically in date order, which lets min() do
// the merge in SQL.
func (s *Store) UpsertMembership(ctx context.Context, m MembershipRecord) error {
	return s.exec(ctx, "upsert membership", `
		INSERT INTO program_memberships
		(membership_id, user_id, program_id, brand_id, joined_at, tasks_completed, sales_attributed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(membership_id) DO UPDATE SET
			brand_id = excluded.brand_id,
			tasks_completed = excluded.tasks_completed,
			sales_attributed = excluded.sales_attributed,
			joined_at = min(program_memberships.joined_at, excluded.joined_at)
	`,
		m.MembershipID,
		m.UserID,
		m.ProgramID,
		m.BrandID,
		fmtTime(m.JoinedAt),
		m.TasksCompleted,
		m.SalesAttributed,
	)
}

// UpsertTask inserts or replaces a task keyed by task_id. task_id is
// globally unique; re-processing the same id updates in place, never
// duplicates.
func (s *Store) UpsertTask(ctx context.Context, t TaskRecord) error {
	return s.exec(ctx, "upsert task", `
		INSERT INTO tasks
		(task_id, user_id, program_id, membership_id, brand_id, brand_name, platform, post_url,
		 likes, comments, shares, reach, engagement_rate, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			user_id = excluded.user_id,
			program_id = excluded.program_id,
			membership_id = excluded.membership_id,
			brand_id = excluded.brand_id,
			brand_name = excluded.brand_name,
			platform = excluded.platform,
			post_url = excluded.post_url,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			reach = excluded.reach,
			engagement_rate = excluded.engagement_rate,
			submitted_at = excluded.submitted_at
	`,
		t.TaskID,
		t.UserID,
		t.ProgramID,
		t.MembershipID,
		t.BrandID,
		t.BrandName,
		t.Platform,
		nullable(t.PostURL),
		t.Likes,
		t.Comments,
		t.Shares,
		t.Reach,
		t.EngagementRate,
		fmtTime(t.SubmittedAt),
	)
}

// nullable maps "" to NULL for columns where absence is meaningful.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
