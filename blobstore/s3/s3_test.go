package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/npygo/blobstore"
)

// fakeClient implements Client over an in-memory map.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (c *fakeClient) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &awss3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (c *fakeClient) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	body := data
	if rng := aws.ToString(in.Range); rng != "" {
		var start, end int64
		if _, err := fmt.Sscanf(rng, "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
		body = data[start : end+1]
	}
	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func (c *fakeClient) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[aws.ToString(in.Key)] = data
	return &awss3.PutObjectOutput{}, nil
}

func (c *fakeClient) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (c *fakeClient) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var contents []types.Object
	for key := range c.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			contents = append(contents, types.Object{Key: aws.String(key)})
		}
	}
	return &awss3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(false),
	}, nil
}

func (c *fakeClient) UploadPart(context.Context, *awss3.UploadPartInput, ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func (c *fakeClient) CreateMultipartUpload(context.Context, *awss3.CreateMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func (c *fakeClient) CompleteMultipartUpload(context.Context, *awss3.CompleteMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func (c *fakeClient) AbortMultipartUpload(context.Context, *awss3.AbortMultipartUploadInput, ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "arrays")

	w, err := store.Create(ctx, "emb.npy")
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello ranged world")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "emb.npy")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(18), blob.Size())

	buf := make([]byte, 6)
	n, err := blob.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "ranged", string(buf[:n]))
}

func TestStoreReadAtTail(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.objects["data.npy"] = []byte("0123456789")

	store := NewStore(client, "bucket", "")

	blob, err := store.Open(ctx, "data.npy")
	require.NoError(t, err)

	buf := make([]byte, 8)
	n, err := blob.ReadAt(buf, 7)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "789", string(buf[:n]))

	_, err = blob.ReadAt(buf, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeClient(), "bucket", "")

	_, err := store.Open(ctx, "nope.npy")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.objects["arrays/b.npy"] = nil
	client.objects["arrays/a.npy"] = nil
	client.objects["other/c.npy"] = nil

	store := NewStore(client, "bucket", "arrays")

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.npy", "b.npy"}, names)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.objects["x.npy"] = []byte("x")

	store := NewStore(client, "bucket", "")
	require.NoError(t, store.Delete(ctx, "x.npy"))

	_, err := store.Open(ctx, "x.npy")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}
