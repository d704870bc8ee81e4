package deploy

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStoreClient is the subset of the S3 API used to mirror website content.
type ObjectStoreClient interface {
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
	DeleteObjects(
		ctx context.Context,
		params *s3.DeleteObjectsInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteObjectsOutput, error)
}

// CdnClient is the subset of the CloudFront API used to find and invalidate distributions.
type CdnClient interface {
	ListDistributions(
		ctx context.Context,
		params *cloudfront.ListDistributionsInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.ListDistributionsOutput, error)
	CreateInvalidation(
		ctx context.Context,
		params *cloudfront.CreateInvalidationInput,
		optFns ...func(*cloudfront.Options),
	) (*cloudfront.CreateInvalidationOutput, error)
}

var (
	_ ObjectStoreClient = (*s3.Client)(nil)
	_ CdnClient         = (*cloudfront.Client)(nil)
)

// Clients bundles the provider clients for one deploy run.
type Clients struct {
	Store ObjectStoreClient
	CDN   CdnClient
}

type clientOptions struct {
	credentials aws.CredentialsProvider
	awsCfg      *aws.Config
}

type ClientOption func(*clientOptions)

// WithStaticCredentials pins the access key pair instead of the default credential chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) ClientOption {
	return func(opts *clientOptions) {
		opts.credentials = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	}
}

// WithAWSConfig skips shared config loading; region and profile are ignored.
func WithAWSConfig(cfg aws.Config) ClientOption {
	return func(opts *clientOptions) {
		cfgCopy := cfg
		opts.awsCfg = &cfgCopy
	}
}

// NewClients builds fresh S3 and CloudFront clients scoped to region and, when set, profile.
// An empty profile uses the default credential chain.
func NewClients(ctx context.Context, region, profile string, options ...ClientOption) (Clients, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &clientOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}

	cfg, err := loadAWSConfig(ctx, region, profile, opts)
	if err != nil {
		return Clients{}, err
	}

	return Clients{
		Store: s3.NewFromConfig(cfg),
		CDN:   cloudfront.NewFromConfig(cfg),
	}, nil
}

func loadAWSConfig(ctx context.Context, region, profile string, opts *clientOptions) (aws.Config, error) {
	if opts.awsCfg != nil {
		return *opts.awsCfg, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(strings.TrimSpace(region)),
	}
	if profile = strings.TrimSpace(profile); profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	if opts.credentials != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(opts.credentials))
	}
	return awsconfig.LoadDefaultConfig(ctx, loadOpts...)
}
