package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// uploadFolder is the fixed key prefix all portal uploads live under.
const uploadFolder = "registration-portal"

// MinioStore implements BlobStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
// publicBaseURL, when set, is used to build object references; otherwise
// references are presigned-style endpoint URLs.
func NewMinioStore(endpoint, accessKey, secretKey, bucket, publicBaseURL string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Put uploads an object under the portal folder and returns its URL.
func (m *MinioStore) Put(ctx context.Context, field, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := path.Join(uploadFolder, field, objectName(time.Now(), filename))
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	if m.publicBaseURL != "" {
		return m.publicBaseURL + "/" + m.bucket + "/" + key, nil
	}
	u := url.URL{
		Scheme: m.client.EndpointURL().Scheme,
		Host:   m.client.EndpointURL().Host,
		Path:   "/" + m.bucket + "/" + key,
	}
	return u.String(), nil
}
