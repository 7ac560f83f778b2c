package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresRegionAndBucket(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestPresignPutAgainstCustomEndpoint(t *testing.T) {
	c, err := NewClient(context.Background(), S3Config{
		Region:     "us-east-1",
		Bucket:     "avatars",
		AccessKey:  "AKIDEXAMPLE",
		SecretKey:  "secret",
		Endpoint:   "http://localhost:9000",
		PublicBase: "https://cdn.example.com/",
		PresignTTL: 5 * time.Minute,
	})
	require.NoError(t, err)

	u, headers, err := c.PresignPut(context.Background(), "avatars/a.png", "image/png", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/avatars/avatars/a.png?"), u)
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Equal(t, "image/png", headers["Content-Type"])

	assert.Equal(t, "https://cdn.example.com/avatars/a.png", c.FileURL("avatars/a.png"))
}

func TestFileURLWithoutPublicBase(t *testing.T) {
	ctx := context.Background()

	minio, err := NewClient(ctx, S3Config{Region: "us-east-1", Bucket: "avatars", Endpoint: "http://localhost:9000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/avatars/avatars/a.png", minio.FileURL("avatars/a.png"))

	hosted, err := NewClient(ctx, S3Config{Region: "eu-west-1", Bucket: "convo-avatars"})
	require.NoError(t, err)
	assert.Equal(t, "https://convo-avatars.s3.eu-west-1.amazonaws.com/avatars/a.png", hosted.FileURL("avatars/a.png"))
}

func TestPresignPutRequiresKey(t *testing.T) {
	var c *Client
	_, _, err := c.PresignPut(context.Background(), "k", "", 0)
	assert.Error(t, err)
	assert.Equal(t, "", c.FileURL("k"))
}
