// Package stack composes the static-site hosting stack: DNS zone, certificate, private bucket,
// CloudFront distribution with a www redirect, aliases, content deployment and a domain parameter.
package stack

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/statictheory/pkg/naming"
)

// Fallbacks for the standalone execution path.
const (
	DefaultProject     = "static-site"
	DefaultDomain      = "example.com"
	DefaultRegion      = "us-east-1"
	DefaultAccount     = "123456789012"
	DefaultContentPath = "website"
)

// Environment variables read by ConfigFromEnv and ApplyEnv.
const (
	EnvRegion          = "CDK_DEFAULT_REGION"
	EnvAccount         = "CDK_DEFAULT_ACCOUNT"
	EnvAssetBucketName = "ASSET_BUCKET_NAME"
	EnvProject         = "SITE_PROJECT"
	EnvDomain          = "SITE_DOMAIN"
	EnvContentPath     = "SITE_CONTENT_PATH"
)

var dnsLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Environment pins the stack to an account and region.
type Environment struct {
	Account string `yaml:"account"`
	Region  string `yaml:"region"`
}

// Config describes one site stack.
type Config struct {
	Project string `yaml:"project"`
	Domain  string `yaml:"domain"`

	// AssetBucketName overrides the bucket name derived from Domain.
	AssetBucketName string `yaml:"asset_bucket_name"`
	ContentPath     string `yaml:"content_path"`

	Tags map[string]string `yaml:"tags"`
	Env  Environment       `yaml:"env"`
}

// ConfigFromEnv builds a Config from the environment, falling back to fixed literals.
// An unset ASSET_BUCKET_NAME leaves the bucket name to be derived from the domain.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		Project:     DefaultProject,
		Domain:      DefaultDomain,
		ContentPath: DefaultContentPath,
		Env: Environment{
			Account: DefaultAccount,
			Region:  DefaultRegion,
		},
	}
	return cfg.ApplyEnv(getenv)
}

// ApplyEnv overrides fields with any non-empty environment value.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Project, EnvProject)
	set(&c.Domain, EnvDomain)
	set(&c.AssetBucketName, EnvAssetBucketName)
	set(&c.ContentPath, EnvContentPath)
	set(&c.Env.Account, EnvAccount)
	set(&c.Env.Region, EnvRegion)
	return c
}

// LoadConfigFile reads a YAML stack configuration. Unknown keys are rejected.
func LoadConfigFile(path string) (Config, error) {
	//nolint:gosec // Caller-supplied config path.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("stack: read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("stack: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize trims every field except Project and applies the content path default.
func (c Config) Normalize() Config {
	c.Domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(c.Domain)), ".")
	c.AssetBucketName = strings.TrimSpace(c.AssetBucketName)
	c.ContentPath = strings.TrimSpace(c.ContentPath)
	if c.ContentPath == "" {
		c.ContentPath = DefaultContentPath
	}
	c.Env.Account = strings.TrimSpace(c.Env.Account)
	c.Env.Region = strings.TrimSpace(c.Env.Region)
	return c
}

// Validate checks the project name and that the domain is a DNS name with at least two labels.
// The project is used verbatim in the stack name, export names, the SSM path and tags, so it is
// rejected rather than rewritten when it holds characters those identifiers do not allow.
func (c Config) Validate() error {
	if c.Project == "" {
		return errors.New("stack: project name is required")
	}
	if err := naming.ValidateProject(c.Project); err != nil {
		return fmt.Errorf("stack: %w", err)
	}
	return ValidateDomain(c.Domain)
}

// ValidateDomain reports whether domain is a valid multi-label DNS name.
func ValidateDomain(domain string) error {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return errors.New("stack: domain is required")
	}
	if len(domain) > 253 {
		return fmt.Errorf("stack: domain %q is longer than 253 characters", domain)
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return fmt.Errorf("stack: domain %q needs at least two labels", domain)
	}
	for _, label := range labels {
		if !dnsLabel.MatchString(label) {
			return fmt.Errorf("stack: domain %q has invalid label %q", domain, label)
		}
	}
	return nil
}
