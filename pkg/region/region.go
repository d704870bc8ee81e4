// Package region resolves the AWS region a deploy run should target.
package region

import (
	"context"
	"errors"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Fallback is used when neither the profile nor the environment names a region.
const Fallback = "us-east-1"

const defaultProfile = "default"

// EnvVars are consulted, in order, after the shared files.
var EnvVars = []string{"AWS_REGION", "AWS_DEFAULT_REGION"}

// Sources holds the region settings already read for one profile.
type Sources struct {
	Profile           string
	ConfigRegion      string
	CredentialsRegion string
}

// Resolve returns the first non-empty region of: the profile's config file entry, the profile's
// credentials file entry, AWS_REGION, AWS_DEFAULT_REGION and finally Fallback.
func Resolve(src Sources, getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}

	candidates := []string{src.ConfigRegion, src.CredentialsRegion}
	for _, key := range EnvVars {
		candidates = append(candidates, getenv(key))
	}
	for _, candidate := range candidates {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return Fallback
}

// Files names the shared files LoadSources reads. Empty fields use the SDK defaults.
type Files struct {
	Config      string
	Credentials string
}

// LoadSources reads the region for profile from the shared config file and the shared
// credentials file independently so Resolve can apply its precedence. A missing file or
// profile yields an empty region rather than an error.
func LoadSources(ctx context.Context, profile string, files Files) (Sources, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = defaultProfile
	}

	configFile := files.Config
	if configFile == "" {
		configFile = awsconfig.DefaultSharedConfigFilename()
	}
	credentialsFile := files.Credentials
	if credentialsFile == "" {
		credentialsFile = awsconfig.DefaultSharedCredentialsFilename()
	}

	src := Sources{Profile: profile}

	fromConfig, err := loadRegion(ctx, profile, func(o *awsconfig.LoadSharedConfigOptions) {
		o.ConfigFiles = []string{configFile}
		o.CredentialsFiles = []string{}
	})
	if err != nil {
		return Sources{}, err
	}
	src.ConfigRegion = fromConfig

	fromCredentials, err := loadRegion(ctx, profile, func(o *awsconfig.LoadSharedConfigOptions) {
		o.ConfigFiles = []string{}
		o.CredentialsFiles = []string{credentialsFile}
	})
	if err != nil {
		return Sources{}, err
	}
	src.CredentialsRegion = fromCredentials

	return src, nil
}

func loadRegion(ctx context.Context, profile string, optFn func(*awsconfig.LoadSharedConfigOptions)) (string, error) {
	shared, err := awsconfig.LoadSharedConfigProfile(ctx, profile, optFn)
	if err != nil {
		var notExist awsconfig.SharedConfigProfileNotExistError
		if errors.As(err, &notExist) {
			return "", nil
		}
		return "", err
	}
	return shared.Region, nil
}

// ForProfile loads the shared files for profile and resolves against the process environment.
func ForProfile(ctx context.Context, profile string) (string, error) {
	src, err := LoadSources(ctx, profile, Files{})
	if err != nil {
		return "", err
	}
	return Resolve(src, os.Getenv), nil
}
