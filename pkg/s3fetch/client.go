package s3fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client lists and downloads wordlist objects.
type Client struct {
	lister     s3.ListObjectsV2APIClient
	downloader *Downloader
}

// NewClient creates a new S3 client using default AWS configuration.
func NewClient(ctx context.Context, dcfg DownloaderConfig) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewClientWithConfig(cfg, dcfg), nil
}

// NewClientWithConfig creates a new S3 client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config, dcfg DownloaderConfig) *Client {
	s3Client := s3.NewFromConfig(cfg)
	return &Client{
		lister:     s3Client,
		downloader: NewDownloader(s3Client, dcfg),
	}
}

// List returns the objects whose key starts with the key part of uri.
// Folder placeholder objects are skipped. Keys come back in S3 order,
// which is lexicographic.
func (c *Client) List(ctx context.Context, uri string) ([]Object, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	return listObjects(ctx, c.lister, bucket, prefix)
}

func listObjects(ctx context.Context, api s3.ListObjectsV2APIClient, bucket, prefix string) ([]Object, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []Object
	p := s3.NewListObjectsV2Paginator(api, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, Object{
				Bucket: bucket,
				Key:    key,
				Size:   aws.ToInt64(obj.Size),
			})
		}
	}
	return objects, nil
}

// Fetch downloads obj into dir and returns the local path. The caller
// removes the file when done with it.
func (c *Client) Fetch(ctx context.Context, obj Object, dir string) (string, error) {
	dest := filepath.Join(dir, sanitizeFilename(obj.Key))
	if _, err := c.downloader.DownloadToFile(ctx, obj.Bucket, obj.Key, dest); err != nil {
		return "", err
	}
	return dest, nil
}
