package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/RoundTable02/gdgoc-onewave-be/pkg/storage"
)

type recordingS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (r *recordingS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	r.inputs = append(r.inputs, params)
	r.bodies = append(r.bodies, string(data))
	return &s3.PutObjectOutput{}, nil
}

func TestStorePutSendsBucketKeyAndContentType(t *testing.T) {
	client := &recordingS3{}
	store := storage.NewWithClient(client, "sites", "https://storage.example.com/", zerolog.Nop())

	err := store.Put(context.Background(), "submissions/abc/index.html", strings.NewReader("<html></html>"), 13, "text/html; charset=utf-8")
	require.NoError(t, err)

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	require.Equal(t, "sites", aws.ToString(input.Bucket))
	require.Equal(t, "submissions/abc/index.html", aws.ToString(input.Key))
	require.Equal(t, "text/html; charset=utf-8", aws.ToString(input.ContentType))
	require.Equal(t, int64(13), aws.ToInt64(input.ContentLength))
	require.Equal(t, "<html></html>", client.bodies[0])
}

func TestStorePutWrapsClientError(t *testing.T) {
	client := &recordingS3{err: errors.New("access denied")}
	store := storage.NewWithClient(client, "sites", "https://storage.example.com", zerolog.Nop())

	err := store.Put(context.Background(), "a.txt", strings.NewReader("x"), 1, "text/plain")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
}

func TestStorePublicURL(t *testing.T) {
	store := storage.NewWithClient(&recordingS3{}, "sites", "https://storage.example.com/", zerolog.Nop())

	require.Equal(t,
		"https://storage.example.com/sites/submissions/abc/index.html",
		store.PublicURL("submissions/abc/index.html"),
	)
}
