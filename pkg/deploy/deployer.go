package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/theory-cloud/statictheory/pkg/logger"
	"github.com/theory-cloud/statictheory/pkg/naming"
	"github.com/theory-cloud/statictheory/pkg/observability"
	"github.com/theory-cloud/statictheory/pkg/region"
)

// DefaultContentPath is the local directory mirrored when Options.ContentPath is empty.
const DefaultContentPath = "website"

// Options describes one deploy invocation.
type Options struct {
	Bucket      string
	Profile     string
	ContentPath string

	// Domain is used to derive the bucket name when Bucket is empty.
	Domain string
	// DryRun reports what would change without writing to S3 or CloudFront.
	DryRun bool
}

// Report summarizes a deploy run.
type Report struct {
	RunID         string         `json:"run_id"`
	Region        string         `json:"region"`
	Bucket        string         `json:"bucket"`
	ContentPath   string         `json:"content_path"`
	DryRun        bool           `json:"dry_run"`
	Sync          SyncResult     `json:"sync"`
	Distributions []string       `json:"distributions"`
	Invalidations []Invalidation `json:"invalidations"`
}

// RegionResolver maps an optional profile to the region clients are built for.
type RegionResolver func(ctx context.Context, profile string) (string, error)

// ClientFactory builds the provider clients for a run.
type ClientFactory func(ctx context.Context, region, profile string) (Clients, error)

type deployerOptions struct {
	clients       *Clients
	clientOptions []ClientOption
	resolveRegion RegionResolver
	newClients    ClientFactory
	logger        observability.StructuredLogger
	now           func() time.Time
}

type Option func(*deployerOptions)

// WithClients injects ready-made clients; the region is still resolved for the report.
func WithClients(clients Clients) Option {
	return func(opts *deployerOptions) {
		opts.clients = &clients
	}
}

func WithClientOptions(options ...ClientOption) Option {
	return func(opts *deployerOptions) {
		opts.clientOptions = append(opts.clientOptions, options...)
	}
}

func WithRegionResolver(fn RegionResolver) Option {
	return func(opts *deployerOptions) {
		opts.resolveRegion = fn
	}
}

func WithClientFactory(fn ClientFactory) Option {
	return func(opts *deployerOptions) {
		opts.newClients = fn
	}
}

func WithLogger(log observability.StructuredLogger) Option {
	return func(opts *deployerOptions) {
		opts.logger = log
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *deployerOptions) {
		opts.now = now
	}
}

// Normalize fills defaults and derives the bucket from Domain when needed.
func (o Options) Normalize() (Options, error) {
	o.Bucket = strings.TrimSpace(o.Bucket)
	o.Profile = strings.TrimSpace(o.Profile)
	o.ContentPath = strings.TrimSpace(o.ContentPath)
	o.Domain = strings.TrimSpace(o.Domain)

	if o.ContentPath == "" {
		o.ContentPath = DefaultContentPath
	}
	if o.Bucket == "" {
		if o.Domain == "" {
			return o, errors.New("deploy: bucket name is required")
		}
		bucket, err := naming.DeriveBucketName(o.Domain)
		if err != nil {
			return o, err
		}
		o.Bucket = bucket
	}
	return o, nil
}

// DeployWebsite mirrors the content directory into the bucket and then invalidates every
// CloudFront distribution whose origin references the bucket.
//
// Steps run strictly in order. A sync failure is wrapped and no invalidation is attempted.
// Discovery and invalidation failures are returned as is; the first failed invalidation stops
// the remaining ones. The returned Report reflects the work done before any failure.
func DeployWebsite(ctx context.Context, opts Options, options ...Option) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := &deployerOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	if cfg.resolveRegion == nil {
		cfg.resolveRegion = region.ForProfile
	}
	if cfg.newClients == nil {
		clientOpts := cfg.clientOptions
		cfg.newClients = func(ctx context.Context, region, profile string) (Clients, error) {
			return NewClients(ctx, region, profile, clientOpts...)
		}
	}
	if cfg.logger == nil {
		cfg.logger = logger.Logger()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	runID := ulid.Make().String()
	log := cfg.logger.WithRunID(runID)

	opts, err := opts.Normalize()
	if err != nil {
		log.Error("invalid deploy options", map[string]any{"error": err.Error()})
		return Report{RunID: runID}, err
	}
	log = log.WithBucket(opts.Bucket)

	report := Report{
		RunID:         runID,
		Bucket:        opts.Bucket,
		ContentPath:   opts.ContentPath,
		DryRun:        opts.DryRun,
		Distributions: []string{},
		Invalidations: []Invalidation{},
	}

	resolved, err := cfg.resolveRegion(ctx, opts.Profile)
	if err != nil {
		log.Error("region resolution failed", map[string]any{"error": err.Error()})
		return report, fmt.Errorf("deploy: resolve region: %w", err)
	}
	report.Region = resolved

	var clients Clients
	if cfg.clients != nil {
		clients = *cfg.clients
	} else {
		clients, err = cfg.newClients(ctx, resolved, opts.Profile)
		if err != nil {
			log.Error("client construction failed", map[string]any{"error": err.Error()})
			return report, fmt.Errorf("deploy: create clients: %w", err)
		}
	}

	log.Info("syncing website", map[string]any{
		"region":       resolved,
		"profile":      opts.Profile,
		"content_path": opts.ContentPath,
		"dry_run":      opts.DryRun,
	})
	synced, err := Mirror(ctx, clients.Store, opts.Bucket, opts.ContentPath, log, opts.DryRun)
	report.Sync = synced
	if err != nil {
		log.Error("website sync failed", map[string]any{"error": err.Error()})
		return report, fmt.Errorf("deploy: sync website to %s: %w", opts.Bucket, err)
	}
	log.Info("website synced", map[string]any{
		"uploaded": len(synced.Uploaded),
		"skipped":  len(synced.Skipped),
		"deleted":  len(synced.Deleted),
	})

	distributions, err := FindDistributions(ctx, clients.CDN, opts.Bucket)
	if err != nil {
		log.Error("distribution lookup failed", map[string]any{"error": err.Error()})
		return report, err
	}
	report.Distributions = distributions
	if len(distributions) == 0 {
		log.Warn("no distribution references bucket")
		return report, nil
	}

	for _, id := range distributions {
		distLog := log.WithDistributionID(id)
		ref := CallerReference(id, cfg.now())
		if opts.DryRun {
			distLog.Info("would invalidate distribution", map[string]any{"paths": AllPaths})
			report.Invalidations = append(report.Invalidations, Invalidation{DistributionID: id, CallerReference: ref})
			continue
		}

		inv, err := Invalidate(ctx, clients.CDN, id, ref)
		if err != nil {
			distLog.Error("invalidation failed", map[string]any{"error": err.Error()})
			return report, err
		}
		distLog.Info("invalidation created", map[string]any{
			"invalidation_id":  inv.InvalidationID,
			"caller_reference": inv.CallerReference,
		})
		report.Invalidations = append(report.Invalidations, inv)
	}

	return report, nil
}
