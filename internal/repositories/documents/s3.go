package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/models"
)

// S3API is the subset of *s3.Client used by S3Repository.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ Repository = (*S3Repository)(nil)

// S3Repository stores each document as a JSON object under prefix. The
// object ETag is the revision; conditional writes use If-Match and
// If-None-Match.
type S3Repository struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Repository(client S3API, bucket, prefix string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket, prefix: prefix}
}

// key escapes id so that it can never leave the prefix.
func (r *S3Repository) key(id string) string {
	name := url.PathEscape(id) + ".json"
	if r.prefix == "" {
		return name
	}
	return r.prefix + "/" + name
}

func (r *S3Repository) listPrefix() *string {
	if r.prefix == "" {
		return nil
	}
	return aws.String(r.prefix + "/")
}

// isDocumentKey reports whether key was produced by r.key. Other objects
// sharing the bucket or prefix are never counted or deleted.
func (r *S3Repository) isDocumentKey(key string) bool {
	name := key
	if r.prefix != "" {
		var ok bool
		if name, ok = strings.CutPrefix(key, r.prefix+"/"); !ok {
			return false
		}
	}
	return strings.HasSuffix(name, ".json") && !strings.Contains(name, "/")
}

func (r *S3Repository) Get(ctx context.Context, id string) (*models.Document, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read object: %w", err)
	}
	return &models.Document{ID: id, Body: body, Revision: aws.ToString(out.ETag)}, nil
}

func (r *S3Repository) Put(ctx context.Context, doc *models.Document) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(doc.ID)),
		Body:        bytes.NewReader(doc.Body),
		ContentType: aws.String("application/json"),
	}
	if doc.Revision == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(doc.Revision)
	}

	out, err := r.client.PutObject(ctx, in)
	if err != nil {
		if isS3Conflict(err) {
			return "", common.ErrVersionConflict
		}
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return aws.ToString(out.ETag), nil
}

// Remove checks for the object first, since S3 deletes of missing keys succeed.
func (r *S3Repository) Remove(ctx context.Context, id string) error {
	key := aws.String(r.key(id))

	if _, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(r.bucket), Key: key}); err != nil {
		if isS3NotFound(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("s3 head object: %w", err)
	}
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(r.bucket), Key: key}); err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func (r *S3Repository) Destroy(ctx context.Context) error {
	p := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: r.listPrefix(),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list objects: %w", err)
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			if r.isDocumentKey(aws.ToString(obj.Key)) {
				ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
			}
		}
		if len(ids) == 0 {
			continue
		}
		out, err := r.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(r.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("s3 delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("s3 delete objects: %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}

func (r *S3Repository) Info(ctx context.Context) (*models.Info, error) {
	info := &models.Info{Backend: "s3"}

	p := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: r.listPrefix(),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if r.isDocumentKey(aws.ToString(obj.Key)) {
				info.DocCount++
			}
		}
	}
	return info, nil
}

func (r *S3Repository) Close() error { return nil }

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isS3Conflict(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
