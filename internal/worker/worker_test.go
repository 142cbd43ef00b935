package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/ingest"
	"github.com/roach88/intake/internal/project"
	"github.com/roach88/intake/internal/source"
	"github.com/roach88/intake/internal/store"
	"github.com/roach88/intake/internal/testutil"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) (*Registry, *source.Memory) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	src := source.NewMemory()
	clock := testutil.NewFixedClock(baseTime)
	proc := ingest.NewProcessor(src, st, project.New(st, clock), clock)

	reg, err := NewRegistry(clock,
		&ProcessFileWorker{Processor: proc},
		&ETLBatchWorker{Processor: proc},
	)
	require.NoError(t, err)
	return reg, src
}

func validDoc(userID string) string {
	return fmt.Sprintf(`{
		"user_id": %q,
		"name": "Ada",
		"email": "ada@example.com",
		"instagram_handle": null,
		"tiktok_handle": null,
		"joined_at": null,
		"advocacy_programs": []
	}`, userID)
}

func TestRegistry_RejectsDuplicateIDs(t *testing.T) {
	clock := testutil.NewFixedClock(baseTime)
	_, err := NewRegistry(clock,
		&ProcessFileWorker{},
		&ProcessFileWorker{},
	)
	assert.Error(t, err)
}

func TestRegistry_WorkerIDs(t *testing.T) {
	reg, _ := newTestRegistry(t)
	assert.Equal(t, []string{ETLBatchID, ProcessFileID}, reg.WorkerIDs())
}

func TestDispatch_UnknownWorker(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := reg.Dispatch(context.Background(), Request{WorkerID: "nope", Source: "test"})

	assert.False(t, res.Success)
	assert.Equal(t, "UNKNOWN_WORKER", res.Error)
	assert.NotEmpty(t, res.JobID, "a job id is minted when the caller omits one")
	assert.True(t, res.ExecutedAt.Equal(baseTime))
}

func TestDispatch_ProcessFile(t *testing.T) {
	reg, src := newTestRegistry(t)
	src.Put("u.json", validDoc("a81bc81b-dead-4e5d-abff-90865d1e13b1"))

	input, _ := json.Marshal(ProcessFileInput{FileName: "u.json"})
	res := reg.Dispatch(context.Background(), Request{
		WorkerID: ProcessFileID,
		Input:    input,
		JobID:    "job-1",
		Source:   "test",
	})

	assert.True(t, res.Success)
	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, ProcessFileID, res.WorkerID)
	assert.Contains(t, res.Message, "u.json")

	data, ok := res.Data.(ingest.FileResult)
	require.True(t, ok)
	assert.True(t, data.Success)
}

func TestDispatch_ProcessFileFailureEnvelope(t *testing.T) {
	reg, src := newTestRegistry(t)
	src.Put("bad.json", "broken{")

	input, _ := json.Marshal(ProcessFileInput{FileName: "bad.json"})
	res := reg.Dispatch(context.Background(), Request{WorkerID: ProcessFileID, Input: input, Source: "test"})

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	data, ok := res.Data.(ingest.FileResult)
	require.True(t, ok)
	assert.Equal(t, store.ErrKindParse, data.ErrorKind)
}

func TestDispatch_ProcessFileRequiresFileName(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := reg.Dispatch(context.Background(), Request{
		WorkerID: ProcessFileID,
		Input:    json.RawMessage(`{}`),
		Source:   "test",
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "fileName")
}

func TestDispatch_ETLBatchDefaults(t *testing.T) {
	reg, src := newTestRegistry(t)
	src.Put("a.json", validDoc("a81bc81b-dead-4e5d-abff-000000000001"))
	src.Put("b.json", validDoc("a81bc81b-dead-4e5d-abff-000000000002"))

	res := reg.Dispatch(context.Background(), Request{WorkerID: ETLBatchID, Source: "test"})

	require.True(t, res.Success, "error: %s", res.Error)
	summary, ok := res.Data.(ingest.Summary)
	require.True(t, ok)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Contains(t, res.Message, "2 successful")
}

func TestDispatch_ETLBatchRejectsNegativeParams(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := reg.Dispatch(context.Background(), Request{
		WorkerID: ETLBatchID,
		Input:    json.RawMessage(`{"batchSize": -1}`),
		Source:   "test",
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "batch size")
}
