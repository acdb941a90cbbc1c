package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	body []byte
	etag string
}

// fakeS3 emulates the conditional-write and listing behaviour of S3 for a
// single bucket. pageSize forces pagination.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	pageSize int
	listErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject), pageSize: 2}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body)), ETag: aws.String(obj.etag)}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	cur, exists := f.objects[key]
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "exists"}
	}
	if in.IfMatch != nil && (!exists || cur.etag != aws.ToString(in.IfMatch)) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "etag mismatch"}
	}
	etag := `"` + uuid.NewString() + `"`
	f.objects[key] = fakeObject{body: body, etag: etag}
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(obj.etag)}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	out.KeyCount = aws.Int32(int32(len(keys)))
	return out, nil
}

func TestS3Repository_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository {
		return NewS3Repository(newFakeS3(), "tokens", "passwordless")
	})
}

func TestS3Repository_KeysStayUnderPrefix(t *testing.T) {
	fake := newFakeS3()
	r := NewS3Repository(fake, "tokens", "passwordless")

	_, err := r.Put(context.Background(), &models.Document{ID: "../escape/me", Body: []byte(`{}`)})
	require.NoError(t, err)

	for k := range fake.objects {
		assert.True(t, strings.HasPrefix(k, "passwordless/"), "key %q escaped prefix", k)
		assert.NotContains(t, strings.TrimPrefix(k, "passwordless/"), "/")
	}
}

func TestS3Repository_DestroyOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["other/keep.json"] = fakeObject{body: []byte(`{}`), etag: `"x"`}

	r := NewS3Repository(fake, "tokens", "passwordless")
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := r.Put(ctx, &models.Document{ID: id, Body: []byte(`{}`)})
		require.NoError(t, err)
	}

	require.NoError(t, r.Destroy(ctx))
	assert.Len(t, fake.objects, 1)
	assert.Contains(t, fake.objects, "other/keep.json")
}

func TestS3Repository_EmptyPrefixIgnoresForeignObjects(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["backups/2024.tar"] = fakeObject{body: []byte("x"), etag: `"x"`}
	fake.objects["nested/dir/u9.json"] = fakeObject{body: []byte(`{}`), etag: `"y"`}
	fake.objects["README.md"] = fakeObject{body: []byte("x"), etag: `"z"`}

	r := NewS3Repository(fake, "tokens", "")
	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Put(ctx, &models.Document{ID: id, Body: []byte(`{}`)})
		require.NoError(t, err)
	}

	info, err := r.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.DocCount)

	require.NoError(t, r.Destroy(ctx))
	assert.Len(t, fake.objects, 3)
	assert.Contains(t, fake.objects, "backups/2024.tar")
	assert.Contains(t, fake.objects, "nested/dir/u9.json")
	assert.Contains(t, fake.objects, "README.md")

	info, err = r.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, info.DocCount)
}

func TestS3Repository_ListError(t *testing.T) {
	fake := newFakeS3()
	fake.listErr = errors.New("s3 down")
	r := NewS3Repository(fake, "tokens", "")

	_, err := r.Info(context.Background())
	assert.ErrorContains(t, err, "s3 down")
	assert.ErrorContains(t, r.Destroy(context.Background()), "s3 down")
}

func TestS3ErrorClassification(t *testing.T) {
	assert.True(t, isS3NotFound(&types.NoSuchKey{}))
	assert.True(t, isS3NotFound(&types.NotFound{}))
	assert.True(t, isS3NotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, isS3NotFound(errors.New("boom")))

	assert.True(t, isS3Conflict(&smithy.GenericAPIError{Code: "PreconditionFailed"}))
	assert.True(t, isS3Conflict(&smithy.GenericAPIError{Code: "ConditionalRequestConflict"}))
	assert.False(t, isS3Conflict(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, errors.Is(common.ErrorNotFound, common.ErrVersionConflict))
}
