package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const snapshotBucket = "snapshots"

type Client struct {
	client *minio.Client
}

func NewMinioClient(endpoint, accessKey, secretKey string) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{client: client}, nil
}

// DownloadFrames fetches the extracted JPEG frames of one camera source. The
// URL names a bucket and folder; objects come back in key order so frame
// indexes line up with capture order.
func (c *Client) DownloadFrames(ctx context.Context, frameStoreURL string) ([][]byte, error) {
	u, err := url.Parse(frameStoreURL)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("frame store URL %s has no bucket/folder", frameStoreURL)
	}
	bucket, folder := parts[0], parts[1]

	objectCh := c.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    folder,
		Recursive: true,
	})

	var keys []string
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		keys = append(keys, object.Key)
	}
	sort.Strings(keys)

	var frames [][]byte
	for _, key := range keys {
		obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}

		buf := new(bytes.Buffer)
		_, err = io.Copy(buf, obj)
		obj.Close()
		if err != nil {
			return nil, err
		}

		frames = append(frames, buf.Bytes())
	}

	return frames, nil
}

// SaveArrivalSnapshot stores the frame that confirmed an arrival, as evidence
// next to the patrol record.
func (c *Client) SaveArrivalSnapshot(ctx context.Context, cameraID, eventID string, frame []byte) error {
	objectPath := fmt.Sprintf("%s/%s.jpg", cameraID, eventID)

	_, err := c.client.PutObject(
		ctx,
		snapshotBucket,
		objectPath,
		bytes.NewReader(frame),
		int64(len(frame)),
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
		},
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot to S3: %w", err)
	}

	return nil
}
