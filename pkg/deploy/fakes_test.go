package deploy

import (
	"context"
	"crypto/md5" //nolint:gosec // Matches S3 ETag semantics in the fake.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type storedObject struct {
	body        []byte
	contentType string
}

// fakeStore is an in-memory bucket. Calls are appended to the shared journal when set.
type fakeStore struct {
	objects  map[string]storedObject
	pageSize int
	putErr   error
	listErr  error
	deleted  [][]string
	journal  *[]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]storedObject{}, pageSize: 2}
}

func (f *fakeStore) record(entry string) {
	if f.journal != nil {
		*f.journal = append(*f.journal, entry)
	}
}

func (f *fakeStore) seed(key, body string) {
	f.objects[key] = storedObject{body: []byte(body)}
}

func etagOf(body []byte) string {
	sum := md5.Sum(body) //nolint:gosec // See import.
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (f *fakeStore) ListObjectsV2(
	_ context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	f.record("list-objects")
	if f.listErr != nil {
		return nil, f.listErr
	}

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, err
		}
		start = n
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		obj := f.objects[k]
		out.Contents = append(out.Contents, s3types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(int64(len(obj.body))),
			ETag: aws.String(etagOf(obj.body)),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeStore) PutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	f.record("put:" + key)
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = storedObject{body: body, contentType: aws.ToString(params.ContentType)}
	return &s3.PutObjectOutput{ETag: aws.String(etagOf(body))}, nil
}

func (f *fakeStore) DeleteObjects(
	_ context.Context,
	params *s3.DeleteObjectsInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectsOutput, error) {
	var keys []string
	for _, obj := range params.Delete.Objects {
		key := aws.ToString(obj.Key)
		keys = append(keys, key)
		delete(f.objects, key)
	}
	f.record(fmt.Sprintf("delete:%d", len(keys)))
	f.deleted = append(f.deleted, keys)
	return &s3.DeleteObjectsOutput{}, nil
}

type fakeDistribution struct {
	id      string
	origins []string
}

// fakeCDN serves distributions in pages, returning NextMarker until the last page.
type fakeCDN struct {
	pages [][]fakeDistribution

	listCalls     []string
	listErrOnPage int
	listErr       error

	invalidations []*cloudfront.CreateInvalidationInput
	failOn        string
	journal       *[]string
}

func (f *fakeCDN) record(entry string) {
	if f.journal != nil {
		*f.journal = append(*f.journal, entry)
	}
}

func (f *fakeCDN) ListDistributions(
	_ context.Context,
	params *cloudfront.ListDistributionsInput,
	_ ...func(*cloudfront.Options),
) (*cloudfront.ListDistributionsOutput, error) {
	marker := aws.ToString(params.Marker)
	f.listCalls = append(f.listCalls, marker)
	f.record("list-distributions:" + marker)

	page := 0
	if marker != "" {
		n, err := strconv.Atoi(marker)
		if err != nil {
			return nil, err
		}
		page = n
	}
	if f.listErr != nil && page == f.listErrOnPage {
		return nil, f.listErr
	}

	list := &cftypes.DistributionList{}
	if page < len(f.pages) {
		for _, dist := range f.pages[page] {
			origins := make([]cftypes.Origin, 0, len(dist.origins))
			for _, domain := range dist.origins {
				origins = append(origins, cftypes.Origin{DomainName: aws.String(domain), Id: aws.String(domain)})
			}
			list.Items = append(list.Items, cftypes.DistributionSummary{
				Id:      aws.String(dist.id),
				Origins: &cftypes.Origins{Items: origins, Quantity: aws.Int32(int32(len(origins)))},
			})
		}
	}
	if page+1 < len(f.pages) {
		list.NextMarker = aws.String(strconv.Itoa(page + 1))
		list.IsTruncated = aws.Bool(true)
	}
	return &cloudfront.ListDistributionsOutput{DistributionList: list}, nil
}

func (f *fakeCDN) CreateInvalidation(
	_ context.Context,
	params *cloudfront.CreateInvalidationInput,
	_ ...func(*cloudfront.Options),
) (*cloudfront.CreateInvalidationOutput, error) {
	id := aws.ToString(params.DistributionId)
	f.record("invalidate:" + id)
	if id == f.failOn {
		return nil, errors.New("invalidation rejected")
	}
	f.invalidations = append(f.invalidations, params)
	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &cftypes.Invalidation{
			Id:     aws.String("I-" + id),
			Status: aws.String("InProgress"),
		},
	}, nil
}
