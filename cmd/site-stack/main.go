package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/jsii-runtime-go"

	obszap "github.com/theory-cloud/statictheory/pkg/observability/zap"
	"github.com/theory-cloud/statictheory/pkg/stack"
)

// EnvConfigFile names a YAML stack configuration when -config is not given.
const EnvConfigFile = "SITE_CONFIG_FILE"

func main() {
	code := run(os.Args[1:], os.Stderr, os.Getenv)
	jsii.Close()
	os.Exit(code)
}

func run(args []string, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("site-stack", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var configPath string
	fs.StringVar(&configPath, "config", getenv(EnvConfigFile), "YAML stack configuration (environment variables override it)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log, err := obszap.NewZapLoggerFactory(obszap.WithOutput(stderr)).CreateCommandLogger("info", "console")
	if err != nil {
		fmt.Fprintf(stderr, "site-stack: FAIL: %v\n", err)
		return 2
	}
	defer func() {
		_ = log.Flush(context.Background())
	}()

	cfg, err := loadConfig(configPath, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "site-stack: FAIL: %v\n", err)
		return 2
	}

	app, site, err := stack.NewApp(cfg)
	if err != nil {
		log.Error("stack composition failed", map[string]any{"error": err.Error()})
		fmt.Fprintf(stderr, "site-stack: FAIL: %v\n", err)
		return 2
	}
	log.WithBucket(site.BucketName).Info("synthesizing stack", map[string]any{
		"stack":   stack.StackID(site.Config),
		"project": site.Config.Project,
		"domain":  site.Config.Domain,
		"region":  site.Config.Env.Region,
	})

	app.Synth(nil)
	return 0
}

func loadConfig(path string, getenv func(string) string) (stack.Config, error) {
	if strings.TrimSpace(path) == "" {
		return stack.ConfigFromEnv(getenv), nil
	}
	cfg, err := stack.LoadConfigFile(path)
	if err != nil {
		return stack.Config{}, err
	}
	return cfg.ApplyEnv(getenv), nil
}
