package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/oklog/ulid/v2"
)

// AllPaths invalidates every cached object of a distribution.
const AllPaths = "/*"

// Invalidation records one accepted invalidation request.
type Invalidation struct {
	DistributionID  string `json:"distribution_id"`
	InvalidationID  string `json:"invalidation_id,omitempty"`
	CallerReference string `json:"caller_reference"`
	Status          string `json:"status,omitempty"`
}

// CallerReference builds a reference unique to the distribution and the moment of the request.
// The ULID suffix keeps two references distinct even within the same millisecond.
func CallerReference(distributionID string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", distributionID, now.UnixMilli(), ulid.Make().String())
}

// Invalidate requests a full-path invalidation of distributionID.
func Invalidate(ctx context.Context, cdn CdnClient, distributionID, callerReference string) (Invalidation, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	out, err := cdn.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(callerReference),
			Paths: &types.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{AllPaths},
			},
		},
	})
	if err != nil {
		return Invalidation{}, err
	}

	inv := Invalidation{
		DistributionID:  distributionID,
		CallerReference: callerReference,
	}
	if out != nil && out.Invalidation != nil {
		inv.InvalidationID = aws.ToString(out.Invalidation.Id)
		inv.Status = aws.ToString(out.Invalidation.Status)
	}
	return inv, nil
}
