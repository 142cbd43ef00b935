package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetUser returns the user record for user_id.
func (s *Store) GetUser(ctx context.Context, userID string) (UserRecord, error) {
	var (
		u        UserRecord
		insta    sql.NullString
		tiktok   sql.NullString
		joinedAt sql.NullString
		updated  string
		issues   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, instagram_handle, tiktok_handle, joined_at,
		       status, is_clean, quality_issues, updated_at
		FROM users WHERE user_id = ?
	`, userID).Scan(&u.UserID, &u.Name, &u.Email, &insta, &tiktok, &joinedAt,
		&u.Status, &u.IsClean, &issues, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, &NotFoundError{Kind: "user", ID: userID}
	}
	if err != nil {
		return UserRecord{}, &DatabaseError{Op: "get user", Err: err}
	}

	u.InstagramHandle = insta.String
	u.TiktokHandle = tiktok.String
	if u.JoinedAt, err = parseTimePtr(joinedAt); err != nil {
		return UserRecord{}, &DatabaseError{Op: "get user", Err: err}
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return UserRecord{}, &DatabaseError{Op: "get user", Err: err}
	}
	if err := json.Unmarshal([]byte(issues), &u.QualityIssues); err != nil {
		return UserRecord{}, &DatabaseError{Op: "get user", Err: fmt.Errorf("decode quality issues: %w", err)}
	}
	return u, nil
}

// GetBrand returns the brand record for brand_id.
func (s *Store) GetBrand(ctx context.Context, brandID string) (BrandRecord, error) {
	var b BrandRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT brand_id, name FROM brands WHERE brand_id = ?`, brandID,
	).Scan(&b.BrandID, &b.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return BrandRecord{}, &NotFoundError{Kind: "brand", ID: brandID}
	}
	if err != nil {
		return BrandRecord{}, &DatabaseError{Op: "get brand", Err: err}
	}
	return b, nil
}

// GetProgram returns the program record for program_id.
func (s *Store) GetProgram(ctx context.Context, programID string) (ProgramRecord, error) {
	var p ProgramRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT program_id, brand_id FROM programs WHERE program_id = ?`, programID,
	).Scan(&p.ProgramID, &p.BrandID)
	if errors.Is(err, sql.ErrNoRows) {
		return ProgramRecord{}, &NotFoundError{Kind: "program", ID: programID}
	}
	if err != nil {
		return ProgramRecord{}, &DatabaseError{Op: "get program", Err: err}
	}
	return p, nil
}

// GetMembership returns the membership for a (user, program) pair.
func (s *Store) GetMembership(ctx context.Context, userID, programID string) (MembershipRecord, error) {
	var (
		m        MembershipRecord
		joinedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT membership_id, user_id, program_id, brand_id, joined_at, tasks_completed, sales_attributed
		FROM program_memberships WHERE user_id = ? AND program_id = ?
	`, userID, programID).Scan(&m.MembershipID, &m.UserID, &m.ProgramID, &m.BrandID,
		&joinedAt, &m.TasksCompleted, &m.SalesAttributed)
	if errors.Is(err, sql.ErrNoRows) {
		return MembershipRecord{}, &NotFoundError{Kind: "membership", ID: userID + "/" + programID}
	}
	if err != nil {
		return MembershipRecord{}, &DatabaseError{Op: "get membership", Err: err}
	}
	if m.JoinedAt, err = parseTime(joinedAt); err != nil {
		return MembershipRecord{}, &DatabaseError{Op: "get membership", Err: err}
	}
	return m, nil
}

// GetTask returns the task record for task_id.
func (s *Store) GetTask(ctx context.Context, taskID string) (TaskRecord, error) {
	var (
		t         TaskRecord
		postURL   sql.NullString
		submitted string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT task_id, user_id, program_id, membership_id, brand_id, brand_name, platform, post_url,
		       likes, comments, shares, reach, engagement_rate, submitted_at
		FROM tasks WHERE task_id = ?
	`, taskID).Scan(&t.TaskID, &t.UserID, &t.ProgramID, &t.MembershipID, &t.BrandID,
		&t.BrandName, &t.Platform, &postURL,
		&t.Likes, &t.Comments, &t.Shares, &t.Reach, &t.EngagementRate, &submitted)
	if errors.Is(err, sql.ErrNoRows) {
		return TaskRecord{}, &NotFoundError{Kind: "task", ID: taskID}
	}
	if err != nil {
		return TaskRecord{}, &DatabaseError{Op: "get task", Err: err}
	}
	t.PostURL = postURL.String
	if t.SubmittedAt, err = parseTime(submitted); err != nil {
		return TaskRecord{}, &DatabaseError{Op: "get task", Err: err}
	}
	return t, nil
}

// Count returns the number of rows in one of the target tables. Used by
// tests and the stats command; table must be a known table name, not
// user input.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n)
	if err != nil {
		return 0, &DatabaseError{Op: "count " + table, Err: err}
	}
	return n, nil
}
