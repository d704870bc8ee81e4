package stack

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/statictheory/pkg/naming"
)

func requireNode(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node runtime not available for jsii")
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o600))
	return Config{
		Project:     "acme",
		Domain:      "example.com",
		ContentPath: dir,
		Tags:        map[string]string{"team": "web"},
		Env:         Environment{Account: "123456789012", Region: "us-east-1"},
	}
}

func TestNewSiteStack_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewSiteStack(nil, "x", Config{Domain: "example.com"})
	require.EqualError(t, err, "stack: project name is required")

	_, _, err = NewApp(Config{Project: "p", Domain: "nodots"})
	require.Error(t, err)

	cfg := testConfig(t)
	cfg.ContentPath = filepath.Join(t.TempDir(), "missing")
	_, err = NewSiteStack(nil, "x", cfg)
	require.ErrorContains(t, err, "stack: content path")
}

func TestNewSiteStack_Template(t *testing.T) {
	requireNode(t)

	_, site, err := NewApp(testConfig(t))
	require.NoError(t, err)
	require.Equal(t, "example-com-website", site.BucketName)
	require.Equal(t, "acme-site", *site.StackName())

	template := assertions.Template_FromStack(site.Stack, nil)

	template.ResourceCountIs(jsii.String("AWS::Route53::HostedZone"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::Route53::HostedZone"), map[string]any{
		"Name": "example.com.",
	})
	template.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]any{
		"DomainName":              "example.com",
		"SubjectAlternativeNames": []any{"www.example.com"},
		"ValidationMethod":        "DNS",
	})
	template.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
		"BucketName": "example-com-website",
		"PublicAccessBlockConfiguration": map[string]any{
			"BlockPublicAcls":       true,
			"BlockPublicPolicy":     true,
			"IgnorePublicAcls":      true,
			"RestrictPublicBuckets": true,
		},
		"BucketEncryption": map[string]any{
			"ServerSideEncryptionConfiguration": []any{
				map[string]any{"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": "AES256"}},
			},
		},
	})
	template.HasResource(jsii.String("AWS::S3::Bucket"), map[string]any{
		"DeletionPolicy": "Delete",
	})
	template.ResourceCountIs(jsii.String("AWS::CloudFront::Function"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::CloudFront::CloudFrontOriginAccessIdentity"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"), map[string]any{
		"DistributionConfig": assertions.Match_ObjectLike(&map[string]any{
			"Aliases":           []any{"example.com", "www.example.com"},
			"DefaultRootObject": "index.html",
			"ViewerCertificate": assertions.Match_ObjectLike(&map[string]any{
				"MinimumProtocolVersion": "TLSv1.2_2021",
			}),
			"DefaultCacheBehavior": assertions.Match_ObjectLike(&map[string]any{
				"ViewerProtocolPolicy": "https-only",
				"FunctionAssociations": []any{
					assertions.Match_ObjectLike(&map[string]any{"EventType": "viewer-request"}),
				},
			}),
		}),
	})
	template.ResourceCountIs(jsii.String("AWS::Route53::RecordSet"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]any{
		"Name": "www.example.com.",
		"Type": "A",
	})
	template.ResourceCountIs(jsii.String("Custom::CDKBucketDeployment"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("Custom::CDKBucketDeployment"), map[string]any{
		"DistributionPaths": []any{"/*"},
	})
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
		"Name":  "/acme/domain",
		"Value": "example.com",
	})

	for _, output := range []string{
		OutputNameServers, OutputHostedZoneID, OutputPrimaryURL, OutputWwwURL,
		OutputDistributionID, OutputDistributionDomain, OutputBucketName,
	} {
		template.HasOutput(jsii.String(output), map[string]any{
			"Export": map[string]any{"Name": "acme-" + output},
		})
	}
	template.HasOutput(jsii.String(OutputPrimaryURL), map[string]any{"Value": "https://example.com"})
}

func TestNewSiteStack_ExplicitBucketNameAndTags(t *testing.T) {
	requireNode(t)

	cfg := testConfig(t)
	cfg.AssetBucketName = "my-assets"
	app := awscdk.NewApp(nil)
	site, err := NewSiteStack(app, "Site", cfg)
	require.NoError(t, err)
	require.Equal(t, "my-assets", site.BucketName)

	template := assertions.Template_FromStack(site.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
		"BucketName": "my-assets",
		"Tags": assertions.Match_ArrayWith(&[]any{
			map[string]any{"Key": "Project", "Value": "acme"},
			map[string]any{"Key": "team", "Value": "web"},
		}),
	})
}

func TestNewSiteStack_WarnsAboutDelegation(t *testing.T) {
	requireNode(t)

	cfg := testConfig(t)
	cfg.Env.Region = "eu-west-1"
	_, site, err := NewApp(cfg)
	require.NoError(t, err)

	annotations := assertions.Annotations_FromStack(site.Stack)
	annotations.HasWarning(jsii.String("*"), assertions.Match_StringLikeRegexp(jsii.String("Delegate example.com")))
	annotations.HasWarning(jsii.String("*"), assertions.Match_StringLikeRegexp(jsii.String("us-east-1")))
}

func TestNewSiteStack_UsesProjectNameAsGiven(t *testing.T) {
	requireNode(t)

	cfg := testConfig(t)
	cfg.Project = "MyProject"
	_, site, err := NewApp(cfg)
	require.NoError(t, err)
	require.Equal(t, "MyProject-site", *site.StackName())

	template := assertions.Template_FromStack(site.Stack, nil)
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
		"Name": "/MyProject/domain",
	})
	template.HasOutput(jsii.String(OutputNameServers), map[string]any{
		"Export": map[string]any{"Name": "MyProject-NameServers"},
	})
	template.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
		"Tags": assertions.Match_ArrayWith(&[]any{
			map[string]any{"Key": "Project", "Value": "MyProject"},
		}),
	})
}

func TestNewSiteStack_RejectsProjectThatCannotBeUsedAsGiven(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Project = "!!!"
	_, err := NewSiteStack(nil, "x", cfg)
	require.ErrorIs(t, err, naming.ErrInvalidProject)
}
