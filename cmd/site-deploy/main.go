package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/theory-cloud/statictheory/pkg/deploy"
	"github.com/theory-cloud/statictheory/pkg/logger"
	obszap "github.com/theory-cloud/statictheory/pkg/observability/zap"
)

var deployWebsite = deploy.DeployWebsite

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("site-deploy", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts deploy.Options
	var logLevel, logFormat string
	var asJSON bool

	fs.StringVar(&opts.Bucket, "bucket", "", "bucket to mirror into (derived from -domain when empty)")
	fs.StringVar(&opts.Domain, "domain", "", "apex domain used to derive the bucket name")
	fs.StringVar(&opts.Profile, "profile", "", "AWS shared config profile (default credential chain when empty)")
	fs.StringVar(&opts.ContentPath, "path", deploy.DefaultContentPath, "local directory to mirror")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "report changes without writing to S3 or CloudFront")
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", "console", "log encoding (console, json)")
	fs.BoolVar(&asJSON, "json", false, "print the deploy report as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "site-deploy: FAIL: unexpected arguments: %v\n", fs.Args())
		return 2
	}

	log, err := obszap.NewZapLoggerFactory(
		obszap.WithOutput(stderr),
		obszap.WithEnvironmentErrorNotifications(ctx, obszap.DefaultEnvironmentErrorNotifications()),
	).CreateCommandLogger(logLevel, logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "site-deploy: FAIL: %v\n", err)
		return 2
	}
	logger.SetLogger(log)
	defer func() {
		// stderr may not support fsync.
		_ = log.Flush(ctx)
	}()

	report, err := deployWebsite(ctx, opts, deploy.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "site-deploy: FAIL: %v\n", err)
		return 2
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "site-deploy: FAIL: %v\n", err)
			return 2
		}
		return 0
	}

	printSummary(stdout, report)
	return 0
}

func printSummary(w io.Writer, report deploy.Report) {
	prefix := "site-deploy:"
	if report.DryRun {
		prefix = "site-deploy (dry run):"
	}
	fmt.Fprintf(w, "%s %s (%s) uploaded=%d skipped=%d deleted=%d\n",
		prefix, report.Bucket, report.Region,
		len(report.Sync.Uploaded), len(report.Sync.Skipped), len(report.Sync.Deleted))

	if len(report.Distributions) == 0 {
		fmt.Fprintf(w, "%s no CloudFront distribution references %s\n", prefix, report.Bucket)
		return
	}
	for _, inv := range report.Invalidations {
		id := inv.InvalidationID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%s invalidated %s (%s)\n", prefix, inv.DistributionID, id)
	}
}
