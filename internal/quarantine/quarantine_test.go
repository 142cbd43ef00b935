package quarantine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/project"
	"github.com/roach88/intake/internal/source"
	"github.com/roach88/intake/internal/store"
	"github.com/roach88/intake/internal/testutil"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const validUserID = "a81bc81b-dead-4e5d-abff-90865d1e13b1"

func validRaw() string {
	return fmt.Sprintf(`{
		"user_id": %q,
		"name": "Ada",
		"email": "ada@example.com",
		"instagram_handle": null,
		"tiktok_handle": null,
		"joined_at": "2024-03-01T00:00:00Z",
		"advocacy_programs": [{
			"program_id": "p1",
			"brand": "GlowCo",
			"total_sales_attributed": 5,
			"tasks_completed": []
		}]
	}`, validUserID)
}

func newTestService(t *testing.T) (*Service, *store.Store, *source.Memory) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	src := source.NewMemory()
	clock := testutil.NewFixedClock(baseTime)
	svc := New(st, project.New(st, clock), src, clock)
	return svc, st, src
}

func seedItem(t *testing.T, st *store.Store, raw string, retryCount int, status string) string {
	t.Helper()
	if status == "" {
		status = store.StatusFailed
	}
	id, err := st.CreateQuarantine(context.Background(), store.QuarantineItem{
		FileName:     "u.json",
		FilePath:     "u.json",
		RawData:      raw,
		ErrorType:    store.ErrKindValidation,
		ErrorMessage: "seed",
		AttemptedAt:  baseTime,
		RetryCount:   retryCount,
		Status:       status,
	})
	require.NoError(t, err)
	return id
}

func TestRetry_SuccessMarksFixed(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	id := seedItem(t, st, validRaw(), 0, "")

	res, err := svc.Retry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, validUserID, res.UserID)

	item, err := st.GetQuarantine(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFixed, item.Status)
	assert.Equal(t, 1, item.RetryCount)
	require.NotNil(t, item.FixedAt)

	n, err := st.Count(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "document projected on successful retry")
}

func TestRetry_FailureUpdatesInPlace(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	id := seedItem(t, st, `{"user_id": "nope"}`, 0, "")

	_, err := svc.Retry(ctx, id)
	require.Error(t, err)

	item, getErr := st.GetQuarantine(ctx, id)
	require.NoError(t, getErr)
	assert.Equal(t, store.StatusFailed, item.Status)
	assert.Equal(t, 1, item.RetryCount)
	assert.Contains(t, item.ErrorMessage, "user_id")

	items, err2 := st.ListQuarantine(ctx, store.QuarantineFilter{})
	require.NoError(t, err2)
	assert.Len(t, items, 1, "failed retry never duplicates the record")
}

func TestRetry_DoesNotRepair(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	// Repairable on the ingest path (trailing comma), but retry parses
	// strictly: hand-edited documents are assumed well-formed.
	id := seedItem(t, st, `{"a": 1,}`, 0, "")

	_, err := svc.Retry(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON parse failed")
}

func TestRetry_MissingItem(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Retry(context.Background(), "missing")
	assert.True(t, store.IsNotFound(err))
}

func TestEdit_RequiresValidJSON(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	id := seedItem(t, st, "{broken", 0, "")

	err := svc.Edit(ctx, id, "{still broken", "tried")
	require.Error(t, err)

	require.NoError(t, svc.Edit(ctx, id, validRaw(), "fixed by hand"))
	item, err := st.GetQuarantine(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, item.Status)
	assert.Equal(t, "fixed by hand", item.Notes)

	// Edited item now replays cleanly.
	_, err = svc.Retry(ctx, id)
	require.NoError(t, err)
}

func TestBatchRetry_SkipsTerminalAndCapped(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	fixed := seedItem(t, st, validRaw(), 0, store.StatusFixed)
	ignored := seedItem(t, st, validRaw(), 0, store.StatusIgnored)
	capped := seedItem(t, st, validRaw(), MaxRetries, "")
	fresh := seedItem(t, st, validRaw(), 0, "")

	res := svc.BatchRetry(ctx, []string{fixed, ignored, capped, fresh, "missing"}, false)

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 4, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, capped, res.Errors[0].ID)
	assert.Contains(t, res.Errors[0].Error, "max retries")

	// The capped item was not attempted.
	item, err := st.GetQuarantine(ctx, capped)
	require.NoError(t, err)
	assert.Equal(t, MaxRetries, item.RetryCount)
}

func TestBatchRetry_ForceAttemptsCapped(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	capped := seedItem(t, st, validRaw(), MaxRetries, "")

	res := svc.BatchRetry(ctx, []string{capped}, true)

	assert.Equal(t, 1, res.Success)
	assert.Zero(t, res.Skipped)

	item, err := st.GetQuarantine(ctx, capped)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFixed, item.Status)
	assert.Equal(t, MaxRetries+1, item.RetryCount)
}

func TestBatchRetry_MixedOutcomes(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	good := seedItem(t, st, validRaw(), 0, "")
	bad := seedItem(t, st, `{"user_id": "nope"}`, 0, "")

	res := svc.BatchRetry(ctx, []string{good, bad}, false)

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, bad, res.Errors[0].ID)
}

func TestDelete_RemovesRecordAndFileBestEffort(t *testing.T) {
	svc, st, src := newTestService(t)
	ctx := context.Background()

	// File present in the quarantine area: removed along with the record.
	src.Put("u.json", "{broken")
	require.NoError(t, src.MoveToQuarantine("u.json"))
	id := seedItem(t, st, "{broken", 0, "")

	require.NoError(t, svc.Delete(ctx, id))
	assert.False(t, src.Quarantined("u.json"))
	_, err := st.GetQuarantine(ctx, id)
	assert.True(t, store.IsNotFound(err))

	// No file on disk: record deletion still succeeds.
	id2 := seedItem(t, st, "{broken", 0, "")
	require.NoError(t, svc.Delete(ctx, id2))
}

func TestIgnore_Terminal(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	id := seedItem(t, st, validRaw(), 0, "")

	require.NoError(t, svc.Ignore(ctx, id, "known-bad export"))

	item, err := st.GetQuarantine(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusIgnored, item.Status)
	assert.Equal(t, "known-bad export", item.Notes)

	res := svc.BatchRetry(ctx, []string{id}, true)
	assert.Equal(t, 1, res.Skipped, "ignored is terminal even under force")
}
