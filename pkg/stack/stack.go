package stack

import (
	"fmt"
	"os"
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3deployment"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/statictheory/pkg/naming"
)

// Output logical ids; each is exported as <project>-<output> with the project name as given.
const (
	OutputNameServers        = "NameServers"
	OutputHostedZoneID       = "HostedZoneId"
	OutputPrimaryURL         = "PrimaryUrl"
	OutputWwwURL             = "WwwUrl"
	OutputDistributionID     = "DistributionId"
	OutputDistributionDomain = "DistributionDomain"
	OutputBucketName         = "BucketName"
)

// InvalidationPaths are invalidated after every content deployment.
var InvalidationPaths = []string{"/*"}

const (
	defaultRootObject  = "index.html"
	certificateRegion  = "us-east-1"
	delegationWarnID   = "statictheory:dns-delegation"
	certRegionWarnID   = "statictheory:certificate-region"
	domainParameterKey = "domain"
)

// SiteStack is the synthesized hosting stack and the constructs callers may reference.
type SiteStack struct {
	awscdk.Stack

	Config     Config
	BucketName string

	Zone             awsroute53.PublicHostedZone
	Certificate      awscertificatemanager.Certificate
	Bucket           awss3.Bucket
	AccessIdentity   awscloudfront.OriginAccessIdentity
	RedirectFunction awscloudfront.Function
	Distribution     awscloudfront.Distribution
	Deployment       awss3deployment.BucketDeployment
	DomainParameter  awsssm.StringParameter
}

// StackID returns the construct id used by NewApp for cfg.
func StackID(cfg Config) string {
	return naming.ResourceName(cfg.Project, "site")
}

// NewApp creates a CDK app holding one SiteStack. The caller synthesizes it.
func NewApp(cfg Config) (awscdk.App, *SiteStack, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	app := awscdk.NewApp(nil)
	site, err := NewSiteStack(app, StackID(cfg), cfg)
	if err != nil {
		return nil, nil, err
	}
	return app, site, nil
}

// NewSiteStack declares the hosting resources inside a new stack under scope.
func NewSiteStack(scope constructs.Construct, id string, cfg Config) (*SiteStack, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bucketName := cfg.AssetBucketName
	if bucketName == "" {
		derived, err := naming.DeriveBucketName(cfg.Domain)
		if err != nil {
			return nil, fmt.Errorf("stack: %w", err)
		}
		bucketName = derived
	}

	info, err := os.Stat(cfg.ContentPath)
	if err != nil {
		return nil, fmt.Errorf("stack: content path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("stack: content path %s is not a directory", cfg.ContentPath)
	}

	stack := awscdk.NewStack(scope, jsii.String(id), &awscdk.StackProps{
		Env:         stackEnv(cfg.Env),
		Description: jsii.String(fmt.Sprintf("Static website hosting for %s (%s)", cfg.Domain, cfg.Project)),
	})
	site := &SiteStack{Stack: stack, Config: cfg, BucketName: bucketName}

	wwwDomain := "www." + cfg.Domain

	site.Zone = awsroute53.NewPublicHostedZone(stack, jsii.String("HostedZone"), &awsroute53.PublicHostedZoneProps{
		ZoneName: jsii.String(cfg.Domain),
		Comment:  jsii.String(fmt.Sprintf("%s public zone", cfg.Project)),
	})

	site.Certificate = awscertificatemanager.NewCertificate(stack, jsii.String("Certificate"), &awscertificatemanager.CertificateProps{
		DomainName:              jsii.String(cfg.Domain),
		SubjectAlternativeNames: jsii.Strings(wwwDomain),
		Validation:              awscertificatemanager.CertificateValidation_FromDns(site.Zone),
	})

	site.Bucket = awss3.NewBucket(stack, jsii.String("WebsiteBucket"), &awss3.BucketProps{
		BucketName:        jsii.String(bucketName),
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
	})

	site.AccessIdentity = awscloudfront.NewOriginAccessIdentity(stack, jsii.String("OriginAccessIdentity"), &awscloudfront.OriginAccessIdentityProps{
		Comment: jsii.String(fmt.Sprintf("%s website origin", cfg.Project)),
	})

	site.RedirectFunction = awscloudfront.NewFunction(stack, jsii.String("WwwRedirect"), &awscloudfront.FunctionProps{
		Code:    awscloudfront.FunctionCode_FromInline(jsii.String(RedirectFunctionCode(cfg.Domain))),
		Comment: jsii.String(fmt.Sprintf("301 %s to %s", wwwDomain, cfg.Domain)),
	})

	site.Distribution = awscloudfront.NewDistribution(stack, jsii.String("Distribution"), &awscloudfront.DistributionProps{
		DefaultBehavior: &awscloudfront.BehaviorOptions{
			Origin: awscloudfrontorigins.S3BucketOrigin_WithOriginAccessIdentity(site.Bucket, &awscloudfrontorigins.S3BucketOriginWithOAIProps{
				OriginAccessIdentity: site.AccessIdentity,
			}),
			ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_HTTPS_ONLY,
			AllowedMethods:       awscloudfront.AllowedMethods_ALLOW_GET_HEAD(),
			CachedMethods:        awscloudfront.CachedMethods_CACHE_GET_HEAD(),
			Compress:             jsii.Bool(true),
			FunctionAssociations: &[]*awscloudfront.FunctionAssociation{
				{
					Function:  site.RedirectFunction,
					EventType: awscloudfront.FunctionEventType_VIEWER_REQUEST,
				},
			},
		},
		DomainNames:            jsii.Strings(cfg.Domain, wwwDomain),
		Certificate:            site.Certificate,
		MinimumProtocolVersion: awscloudfront.SecurityPolicyProtocol_TLS_V1_2_2021,
		DefaultRootObject:      jsii.String(defaultRootObject),
		Comment:                jsii.String(fmt.Sprintf("%s static website", cfg.Domain)),
	})

	target := awsroute53.RecordTarget_FromAlias(awsroute53targets.NewCloudFrontTarget(site.Distribution))
	awsroute53.NewARecord(stack, jsii.String("ApexAlias"), &awsroute53.ARecordProps{
		Zone:       site.Zone,
		RecordName: jsii.String(cfg.Domain),
		Target:     target,
	})
	awsroute53.NewARecord(stack, jsii.String("WwwAlias"), &awsroute53.ARecordProps{
		Zone:       site.Zone,
		RecordName: jsii.String(wwwDomain),
		Target:     target,
	})

	site.Deployment = awss3deployment.NewBucketDeployment(stack, jsii.String("DeployWebsite"), &awss3deployment.BucketDeploymentProps{
		Sources:           &[]awss3deployment.ISource{awss3deployment.Source_Asset(jsii.String(cfg.ContentPath), nil)},
		DestinationBucket: site.Bucket,
		Distribution:      site.Distribution,
		DistributionPaths: jsii.Strings(InvalidationPaths...),
	})

	site.DomainParameter = awsssm.NewStringParameter(stack, jsii.String("DomainParameter"), &awsssm.StringParameterProps{
		ParameterName: jsii.String(naming.ParameterPath(cfg.Project, domainParameterKey)),
		StringValue:   jsii.String(cfg.Domain),
		Description:   jsii.String(fmt.Sprintf("Apex domain served by %s", cfg.Project)),
	})

	applyTags(stack, cfg)
	site.addOutputs()
	site.addWarnings()

	return site, nil
}

func stackEnv(env Environment) *awscdk.Environment {
	out := &awscdk.Environment{}
	if env.Account != "" {
		out.Account = jsii.String(env.Account)
	}
	if env.Region != "" {
		out.Region = jsii.String(env.Region)
	}
	return out
}

func applyTags(stack awscdk.Stack, cfg Config) {
	tags := awscdk.Tags_Of(stack)
	tags.Add(jsii.String("Project"), jsii.String(cfg.Project), nil)

	keys := make([]string, 0, len(cfg.Tags))
	for k := range cfg.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tags.Add(jsii.String(k), jsii.String(cfg.Tags[k]), nil)
	}
}

func (s *SiteStack) addOutputs() {
	wwwDomain := "www." + s.Config.Domain
	outputs := []struct {
		id          string
		value       *string
		description string
	}{
		{OutputNameServers, awscdk.Fn_Join(jsii.String(","), s.Zone.HostedZoneNameServers()), "Name servers to delegate the domain to"},
		{OutputHostedZoneID, s.Zone.HostedZoneId(), "Route 53 hosted zone id"},
		{OutputPrimaryURL, jsii.String("https://" + s.Config.Domain), "Primary site URL"},
		{OutputWwwURL, jsii.String("https://" + wwwDomain), "www URL, redirected to the primary URL"},
		{OutputDistributionID, s.Distribution.DistributionId(), "CloudFront distribution id"},
		{OutputDistributionDomain, s.Distribution.DistributionDomainName(), "CloudFront distribution domain"},
		{OutputBucketName, s.Bucket.BucketName(), "Website content bucket"},
	}
	for _, out := range outputs {
		awscdk.NewCfnOutput(s.Stack, jsii.String(out.id), &awscdk.CfnOutputProps{
			Value:       out.value,
			Description: jsii.String(out.description),
			ExportName:  jsii.String(naming.ResourceName(s.Config.Project, out.id)),
		})
	}
}

func (s *SiteStack) addWarnings() {
	annotations := awscdk.Annotations_Of(s.Stack)
	annotations.AddWarningV2(jsii.String(delegationWarnID), jsii.String(fmt.Sprintf(
		"Delegate %s to the %s output name servers at your registrar; certificate validation and the site stay pending until NS records point at the new zone.",
		s.Config.Domain, OutputNameServers,
	)))
	if region := s.Config.Env.Region; region != "" && region != certificateRegion {
		annotations.AddWarningV2(jsii.String(certRegionWarnID), jsii.String(fmt.Sprintf(
			"CloudFront only accepts certificates from %s; this stack targets %s.",
			certificateRegion, region,
		)))
	}
}
