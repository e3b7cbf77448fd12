package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/local/docsections/internal/library"
	"github.com/local/docsections/internal/manifest"
	"github.com/local/docsections/internal/render"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates health checks for the browser's dependencies.
type Checker struct {
	redis       RedisPinger
	s3Bucket    string
	lib         *library.Library
	manifestRef string
}

// Options configures the Checker.
type Options struct {
	Redis       RedisPinger
	S3Bucket    string
	Library     *library.Library
	ManifestRef string
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis    Status `json:"redis"`
	S3       Status `json:"s3"`
	Library  Status `json:"library"`
	Manifest Status `json:"manifest"`
	Renderer Status `json:"renderer"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	return &Checker{
		redis:       opts.Redis,
		s3Bucket:    opts.S3Bucket,
		lib:         opts.Library,
		manifestRef: opts.ManifestRef,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:    c.checkRedis(ctx),
		S3:       c.checkS3(ctx),
		Library:  c.checkLibrary(),
		Manifest: c.checkManifest(ctx),
		Renderer: c.checkRenderer(),
	}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: false, Message: "client unavailable"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.s3Bucket == "" {
		return Status{OK: false, Message: "Bucket not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	cli := s3.NewFromConfig(cfg)
	_, err = cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.s3Bucket})
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkLibrary() Status {
	if c.lib == nil {
		return Status{OK: false, Message: "not configured"}
	}
	if err := c.lib.CheckDataDir(); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Available"}
}

func (c *Checker) checkManifest(ctx context.Context) Status {
	if c.manifestRef == "" {
		return Status{OK: false, Message: "not configured"}
	}
	path, cleanup, err := library.FetchRef(ctx, c.manifestRef)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	defer cleanup()
	sections, err := manifest.ParseFile(path)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	if len(sections) == 0 {
		return Status{OK: false, Message: "No valid sections"}
	}
	return Status{OK: true, Message: fmt.Sprintf("%d sections", len(sections))}
}

// checkRenderer opens the first page file with go-fitz to verify the native
// MuPDF bindings work on this host.
func (c *Checker) checkRenderer() Status {
	if c.lib == nil {
		return Status{OK: false, Message: "not configured"}
	}
	path, err := c.lib.PageFile(1)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	n, err := render.PageCount(path)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: fmt.Sprintf("Opened %d-page file", n)}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
