package dataset

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	objects map[string]string
	gotKey  string
}

func (f *fakeGetter) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = *params.Bucket + "/" + *params.Key
	body, ok := f.objects[f.gotKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source_Load(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"safety/accidents.jsonl": sampleDataset}}
	src := &S3Source{client: getter, bucket: "safety", key: "accidents.jsonl"}

	cases, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, cases, 4)
	assert.Equal(t, "safety/accidents.jsonl", getter.gotKey)
	assert.Equal(t, "s3://safety/accidents.jsonl", src.Name())
}

func TestS3Source_MissingObject(t *testing.T) {
	src := &S3Source{client: &fakeGetter{}, bucket: "safety", key: "missing.jsonl"}

	_, err := Load(context.Background(), src)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "NoSuchKey")
}

func TestNewS3Source_RequiresBucketAndKey(t *testing.T) {
	_, err := NewS3Source(context.Background(), S3Config{Bucket: "safety"})
	assert.Error(t, err)
}

func TestNewS3Source_CustomEndpoint(t *testing.T) {
	src, err := NewS3Source(context.Background(), S3Config{
		Bucket:          "safety",
		Key:             "accidents.jsonl",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://safety/accidents.jsonl", src.Name())
}
