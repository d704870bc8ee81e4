package deploy

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
)

// OriginMatchesBucket reports whether an origin domain name points at bucket.
//
// The check is a case-sensitive prefix match on "<bucket>.s3". Buckets fronted through a custom
// origin domain are not found, and an unrelated origin sharing the prefix matches.
func OriginMatchesBucket(originDomain, bucket string) bool {
	if bucket == "" {
		return false
	}
	return strings.HasPrefix(originDomain, bucket+".s3")
}

// FindDistributions returns the ids of every CloudFront distribution with an origin that
// references bucket. Pages are requested with the previous NextMarker until none is returned;
// a failed page request is returned as is. No match yields an empty slice.
func FindDistributions(ctx context.Context, cdn CdnClient, bucket string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	matches := []string{}
	var marker *string
	for {
		out, err := cdn.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, err
		}
		if out == nil || out.DistributionList == nil {
			break
		}

		for _, dist := range out.DistributionList.Items {
			if dist.Origins == nil {
				continue
			}
			for _, origin := range dist.Origins.Items {
				if OriginMatchesBucket(aws.ToString(origin.DomainName), bucket) {
					matches = append(matches, aws.ToString(dist.Id))
					break
				}
			}
		}

		next := aws.ToString(out.DistributionList.NextMarker)
		if next == "" {
			break
		}
		marker = aws.String(next)
	}
	return matches, nil
}
