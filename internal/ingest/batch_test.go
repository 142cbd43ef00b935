package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/store"
)

// uuidForIndex builds distinct valid UUIDs for generated fixtures.
func uuidForIndex(i int) string {
	return fmt.Sprintf("a81bc81b-dead-4e5d-abff-%012d", i)
}

func TestRunBatch_IsolatesFailures(t *testing.T) {
	proc, src, st := newTestPipeline(t)
	ctx := context.Background()

	// Ten files; #4 is unparseable.
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("user_%02d.json", i)
		if i == 4 {
			src.Put(name, "{{{ definitely broken")
		} else {
			src.Put(name, userDoc(uuidForIndex(i), fmt.Sprintf("p%d", i)))
		}
	}

	summary, err := proc.RunBatch(ctx, 10, 3)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 9, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.FailedFiles, 1)
	assert.Equal(t, "user_04.json", summary.FailedFiles[0].FileName)

	n, err := st.Count(ctx, "failed_imports")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "exactly one quarantined item")

	n, err = st.Count(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestRunBatch_ChunksSequentially(t *testing.T) {
	proc, src, _ := newTestPipeline(t)

	for i := 0; i < 7; i++ {
		src.Put(fmt.Sprintf("user_%02d.json", i), userDoc(uuidForIndex(i), "p1"))
	}

	// batchSize 3 gives chunks of 3/3/1; all files must be processed.
	summary, err := proc.RunBatch(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Total)
	assert.Equal(t, 7, summary.Successful)

	names, err := src.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, names, "every processed file deleted")
}

func TestRunBatch_EmptySet(t *testing.T) {
	proc, _, _ := newTestPipeline(t)

	summary, err := proc.RunBatch(context.Background(), 100, 5)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Successful)
	assert.Zero(t, summary.Failed)
}

func TestRunBatch_RejectsBadParams(t *testing.T) {
	proc, _, _ := newTestPipeline(t)

	_, err := proc.RunBatch(context.Background(), 0, 5)
	assert.Error(t, err)
	_, err = proc.RunBatch(context.Background(), 10, 0)
	assert.Error(t, err)
}

func TestRunBatch_OrderFreeEarliestJoin(t *testing.T) {
	proc, src, st := newTestPipeline(t)
	ctx := context.Background()

	doc := func(joined string) string {
		return fmt.Sprintf(`{
			"user_id": %q,
			"name": "Ada",
			"email": "ada@example.com",
			"instagram_handle": null,
			"tiktok_handle": null,
			"joined_at": %q,
			"advocacy_programs": [{
				"program_id": "p1",
				"brand": "GlowCo",
				"total_sales_attributed": 0,
				"tasks_completed": []
			}]
		}`, validUserID, joined)
	}

	// Two documents for the same (user, program) with different dates,
	// processed concurrently in one chunk.
	src.Put("later.json", doc("2024-06-01T00:00:00Z"))
	src.Put("earlier.json", doc("2024-01-01T00:00:00Z"))

	summary, err := proc.RunBatch(ctx, 10, 2)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Successful)

	m, err := st.GetMembership(ctx, validUserID, "p1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", m.JoinedAt.Format("2006-01-02"),
		"membership keeps the earliest joined_at regardless of processing order")

	// And quarantine storage never saw these files.
	items, err := st.ListQuarantine(ctx, store.QuarantineFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}
