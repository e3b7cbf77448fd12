package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/local/docsections/internal/library"
	"github.com/local/docsections/internal/limiter"
	"github.com/local/docsections/internal/pdftest"
	"github.com/local/docsections/internal/store"
)

type fakeQueue struct {
	mu        sync.Mutex
	cancelled map[string]bool
	dlq       [][]byte
}

func (f *fakeQueue) Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error) {
	return "", nil, nil
}
func (f *fakeQueue) Ack(ctx context.Context, msgID string) error { return nil }
func (f *fakeQueue) AddDLQ(ctx context.Context, payload []byte, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dlq = append(f.dlq, payload)
	return nil
}
func (f *fakeQueue) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled[jobID], nil
}

type fakeStatus struct {
	mu   sync.Mutex
	last map[string]store.JobStatus
}

func newFakeStatus() *fakeStatus { return &fakeStatus{last: map[string]store.JobStatus{}} }

func (f *fakeStatus) Set(ctx context.Context, jobID string, st store.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last[jobID] = st
	return nil
}

func (f *fakeStatus) Get(ctx context.Context, jobID string) (store.JobStatus, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.last[jobID]
	return st, ok, nil
}

func testLibrary(t *testing.T, pages ...int) *library.Library {
	t.Helper()
	dir := t.TempDir()
	for _, p := range pages {
		path := filepath.Join(dir, fmt.Sprintf(library.DefaultPagePattern, p))
		require.NoError(t, pdftest.WriteSinglePagePDF(path, fmt.Sprintf("text of page %d", p)))
	}
	return library.New(dir, "")
}

func TestProcessWritesLocalBundle(t *testing.T) {
	lib := testLibrary(t, 1, 2, 3)
	status := newFakeStatus()
	resultDir := t.TempDir()
	w := New(Config{ResultDir: resultDir}, &fakeQueue{cancelled: map[string]bool{}}, status, lib, limiter.New(2))

	job := Job{JobID: "job-1", SectionName: "Chapter 1", Pages: []int{1, 2, 3}, Destination: "local"}
	require.NoError(t, w.process(context.Background(), job))

	st, ok, err := status.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "success", st.Status)
	require.Equal(t, 100, st.Progress)

	ref, _ := st.Metadata["result_ref"].(string)
	require.NotEmpty(t, ref)
	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, "=== Page 1 ===")
	require.Contains(t, out, "=== Page 3 ===")
	require.Contains(t, out, "text of page 2")
}

func TestProcessMissingPageBecomesPlaceholder(t *testing.T) {
	lib := testLibrary(t, 1) // page 2 absent
	status := newFakeStatus()
	w := New(Config{ResultDir: t.TempDir()}, &fakeQueue{cancelled: map[string]bool{}}, status, lib, nil)

	job := Job{JobID: "job-2", SectionName: "Partial", Pages: []int{1, 2}}
	require.NoError(t, w.process(context.Background(), job))

	st, _, _ := status.Get(context.Background(), "job-2")
	ref, _ := st.Metadata["result_ref"].(string)
	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	require.Contains(t, string(data), "[page file missing]")
}

func TestProcessCancelledJob(t *testing.T) {
	lib := testLibrary(t, 1)
	status := newFakeStatus()
	q := &fakeQueue{cancelled: map[string]bool{"job-3": true}}
	w := New(Config{ResultDir: t.TempDir()}, q, status, lib, nil)

	err := w.process(context.Background(), Job{JobID: "job-3", SectionName: "X", Pages: []int{1}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cancelled")
}

func TestProcessEmptyPages(t *testing.T) {
	w := New(Config{}, &fakeQueue{cancelled: map[string]bool{}}, newFakeStatus(), testLibrary(t), nil)
	require.Error(t, w.process(context.Background(), Job{JobID: "job-4"}))
}

func TestSaveToLocalFilename(t *testing.T) {
	dir := t.TempDir()
	p, err := saveToLocal(dir, Job{JobID: "abc", SectionName: "My Section!"}, "body")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "My Section_abc.txt"), p)
}
