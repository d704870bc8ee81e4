package deploy

import (
	"context"
	"crypto/md5" //nolint:gosec // S3 single-part ETags are MD5 digests.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/theory-cloud/statictheory/pkg/observability"
)

// DefaultContentType is used when the file extension names no known media type.
const DefaultContentType = "application/octet-stream"

const maxDeleteBatch = 1000

// SyncResult lists the keys touched by a mirror, each sorted.
type SyncResult struct {
	Uploaded []string `json:"uploaded"`
	Skipped  []string `json:"skipped"`
	Deleted  []string `json:"deleted"`
}

type localFile struct {
	key  string
	path string
	size int64
	etag string
}

type remoteObject struct {
	size int64
	etag string
}

// ContentTypeFor infers a Content-Type from the file extension.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return DefaultContentType
}

// Mirror makes bucket an exact copy of dir: every local file is uploaded unless an object with
// the same size and MD5 ETag already exists, and every object without a local counterpart is
// deleted. Work is sequential and stops at the first error.
func Mirror(ctx context.Context, store ObjectStoreClient, bucket, dir string, log observability.StructuredLogger, dryRun bool) (SyncResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = observability.NewNoOpLogger()
	}
	result := SyncResult{Uploaded: []string{}, Skipped: []string{}, Deleted: []string{}}

	local, err := scanLocal(dir)
	if err != nil {
		return result, err
	}
	remote, err := listRemote(ctx, store, bucket)
	if err != nil {
		return result, err
	}

	for _, file := range local {
		if obj, ok := remote[file.key]; ok && obj.size == file.size && obj.etag == file.etag {
			result.Skipped = append(result.Skipped, file.key)
			continue
		}
		if !dryRun {
			if err := putFile(ctx, store, bucket, file); err != nil {
				return result, fmt.Errorf("upload %s: %w", file.key, err)
			}
		}
		log.Debug("uploaded object", map[string]any{"key": file.key, "dry_run": dryRun})
		result.Uploaded = append(result.Uploaded, file.key)
	}

	stale := staleKeys(local, remote)
	for start := 0; start < len(stale); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(stale))
		batch := stale[start:end]
		if !dryRun {
			if err := deleteKeys(ctx, store, bucket, batch); err != nil {
				return result, err
			}
		}
		log.Debug("deleted objects", map[string]any{"count": len(batch), "dry_run": dryRun})
		result.Deleted = append(result.Deleted, batch...)
	}

	return result, nil
}

func scanLocal(dir string) ([]localFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []localFile
	walkErr := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		size, etag, err := digestFile(p)
		if err != nil {
			return err
		}
		files = append(files, localFile{
			key:  filepath.ToSlash(rel),
			path: p,
			size: size,
			etag: etag,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(files, func(i, j int) bool { return files[i].key < files[j].key })
	return files, nil
}

func digestFile(p string) (int64, string, error) {
	//nolint:gosec // Path comes from walking the caller-supplied content directory.
	f, err := os.Open(p)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // See import.
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func listRemote(ctx context.Context, store ObjectStoreClient, bucket string) (map[string]remoteObject, error) {
	remote := map[string]remoteObject{}
	pages := s3.NewListObjectsV2Paginator(store, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			remote[aws.ToString(obj.Key)] = remoteObject{
				size: aws.ToInt64(obj.Size),
				etag: strings.Trim(aws.ToString(obj.ETag), `"`),
			}
		}
	}
	return remote, nil
}

func putFile(ctx context.Context, store ObjectStoreClient, bucket string, file localFile) error {
	//nolint:gosec // Path comes from walking the caller-supplied content directory.
	f, err := os.Open(file.path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(file.key),
		Body:          f,
		ContentLength: aws.Int64(file.size),
		ContentType:   aws.String(ContentTypeFor(path.Base(file.key))),
	})
	return err
}

func staleKeys(local []localFile, remote map[string]remoteObject) []string {
	present := make(map[string]struct{}, len(local))
	for _, file := range local {
		present[file.key] = struct{}{}
	}

	var stale []string
	for key := range remote {
		if _, ok := present[key]; !ok {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	return stale
}

func deleteKeys(ctx context.Context, store ObjectStoreClient, bucket string, keys []string) error {
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := store.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return err
	}
	if out != nil && len(out.Errors) > 0 {
		first := out.Errors[0]
		return errors.New("delete " + aws.ToString(first.Key) + ": " + aws.ToString(first.Message))
	}
	return nil
}
