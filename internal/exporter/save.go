package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/local/docsections/internal/manifest"
	"github.com/local/docsections/internal/storage"
)

// saveToLocal stores the aggregated section text under resultDir and returns
// the local filesystem path.
func saveToLocal(resultDir string, job Job, text string) (string, error) {
	if resultDir == "" {
		resultDir = "results"
	}
	if err := os.MkdirAll(resultDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.txt", manifest.SafeFileName(job.SectionName), job.JobID)
	p := filepath.Join(resultDir, name)
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// saveToS3 uploads the aggregated section text and returns its s3:// URL.
// The job password, when set, encrypts the bundle.
func saveToS3(ctx context.Context, bucket string, job Job, text string) (string, error) {
	cli, err := storage.NewS3Client(ctx, bucket)
	if err != nil {
		return "", fmt.Errorf("failed to create S3 client: %w", err)
	}
	key := fmt.Sprintf("exports/%s/%s.txt", job.JobID, manifest.SafeFileName(job.SectionName))
	metadata := map[string]string{
		"job_id":  job.JobID,
		"section": job.SectionName,
		"created": time.Now().UTC().Format(time.RFC3339),
	}
	if err := cli.Upload(ctx, key, []byte(text), job.Password, metadata); err != nil {
		return "", err
	}
	return cli.URL(key), nil
}
