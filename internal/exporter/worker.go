package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docsections/internal/library"
	"github.com/local/docsections/internal/limiter"
	"github.com/local/docsections/internal/metrics"
	"github.com/local/docsections/internal/render"
	"github.com/local/docsections/internal/store"
)

// Job is the payload carried on the export queue: one section's pages to be
// extracted and bundled into a text file.
type Job struct {
	JobID       string `json:"job_id"`
	SectionName string `json:"section_name"`
	Pages       []int  `json:"pages"`
	Destination string `json:"destination"` // "local" | "s3"
	Password    string `json:"password,omitempty"`
	Attempt     int    `json:"attempt"`
}

// Queue is the minimal export-queue capability the worker needs.
type Queue interface {
	Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error)
	Ack(ctx context.Context, msgID string) error
	AddDLQ(ctx context.Context, payload []byte, reason string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
}

// StatusStore persists export job progress.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.JobStatus) error
	Get(ctx context.Context, jobID string) (store.JobStatus, bool, error)
}

// Config defines worker behavior.
type Config struct {
	Workers   int
	ResultDir string
	S3Bucket  string
}

// Worker consumes export jobs and writes section bundles.
type Worker struct {
	cfg    Config
	q      Queue
	status StatusStore
	lib    *library.Library
	slots  *limiter.Slots
	stop   chan struct{}
}

// New creates a Worker. slots bounds concurrent page extraction across all
// worker goroutines; pass nil to leave extraction unbounded.
func New(cfg Config, q Queue, status StatusStore, lib *library.Library, slots *limiter.Slots) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Worker{cfg: cfg, q: q, status: status, lib: lib, slots: slots, stop: make(chan struct{})}
}

// Start launches the worker goroutines.
func (w *Worker) Start() {
	for i := 0; i < w.cfg.Workers; i++ {
		go w.loop(i)
	}
}

// Stop signals all workers to exit after their current job.
func (w *Worker) Stop(ctx context.Context) error {
	close(w.stop)
	return nil
}

func (w *Worker) loop(id int) {
	log.Info().Int("worker", id).Msg("export worker started")
	consumer := fmt.Sprintf("exporter-%d", id)
	for {
		select {
		case <-w.stop:
			log.Info().Int("worker", id).Msg("export worker stopped")
			return
		default:
		}

		msgID, data, err := w.q.Dequeue(context.Background(), consumer, 2*time.Second)
		if err != nil {
			log.Error().Err(err).Msg("queue dequeue error")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if data == nil {
			continue
		}

		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			log.Error().Err(err).Msg("bad export payload; sending to dlq")
			_ = w.q.AddDLQ(context.Background(), data, "unmarshal: "+err.Error())
			_ = w.q.Ack(context.Background(), msgID)
			continue
		}

		if cancelled, _ := w.q.IsCancelled(context.Background(), job.JobID); cancelled {
			log.Warn().Int("worker", id).Str("job_id", job.JobID).Msg("export cancelled before processing; skipping")
			metrics.IncExport("cancelled")
			_ = w.q.Ack(context.Background(), msgID)
			continue
		}

		if err := w.process(context.Background(), job); err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("export failed")
			metrics.IncExport("failed")
			_ = w.q.AddDLQ(context.Background(), data, err.Error())
			w.markFailed(job.JobID, err)
		} else {
			metrics.IncExport("success")
		}
		_ = w.q.Ack(context.Background(), msgID)
	}
}

// process extracts the text of every page in the job's section, aggregates
// it with page separators, and saves the bundle to the configured
// destination. Missing or unreadable pages become placeholders rather than
// failing the whole bundle.
func (w *Worker) process(ctx context.Context, job Job) error {
	total := len(job.Pages)
	if total == 0 {
		return fmt.Errorf("export %s has no pages", job.JobID)
	}

	var sb strings.Builder
	for i, page := range job.Pages {
		if cancelled, _ := w.q.IsCancelled(ctx, job.JobID); cancelled {
			return fmt.Errorf("export %s cancelled", job.JobID)
		}

		text := w.extractPage(ctx, page)
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "=== Page %d ===\n", page)
		sb.WriteString(text)

		done := i + 1
		_ = w.status.Set(ctx, job.JobID, store.JobStatus{
			Status:   "processing",
			Progress: done * 100 / total,
			Message:  fmt.Sprintf("page %d extracted", page),
			Metadata: map[string]interface{}{"section": job.SectionName, "total_pages": total, "pages_done": done},
		})
	}

	var resultRef string
	var err error
	if job.Destination == "s3" && w.cfg.S3Bucket != "" {
		resultRef, err = saveToS3(ctx, w.cfg.S3Bucket, job, sb.String())
	} else {
		resultRef, err = saveToLocal(w.cfg.ResultDir, job, sb.String())
	}
	if err != nil {
		return err
	}

	now := time.Now()
	return w.status.Set(ctx, job.JobID, store.JobStatus{
		Status:   "success",
		Progress: 100,
		Message:  "completed",
		End:      &now,
		Metadata: map[string]interface{}{
			"section":     job.SectionName,
			"total_pages": total,
			"pages_done":  total,
			"result_ref":  resultRef,
			"destination": job.Destination,
			"encrypted":   job.Password != "",
		},
	})
}

// extractPage pulls the text of one page, honoring the render slot limiter.
// Failures degrade to a placeholder so the bundle stays page-aligned.
func (w *Worker) extractPage(ctx context.Context, page int) string {
	path, err := w.lib.PageFile(page)
	if err != nil {
		log.Warn().Err(err).Int("page", page).Msg("page file missing during export")
		return "[page file missing]"
	}

	if w.slots != nil {
		release, err := w.slots.Acquire(ctx)
		if err != nil {
			return "[extraction timed out]"
		}
		defer release()
	}

	text, err := render.ExtractText(path, 1)
	if err != nil {
		log.Warn().Err(err).Int("page", page).Msg("text extraction failed during export")
		return "[page extraction failed]"
	}
	return text
}

func (w *Worker) markFailed(jobID string, cause error) {
	now := time.Now()
	_ = w.status.Set(context.Background(), jobID, store.JobStatus{
		Status:   "failed",
		Progress: 0,
		Message:  cause.Error(),
		End:      &now,
	})
}
