package s3fetch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Object is one S3 object selected as an input.
type Object struct {
	Bucket string
	Key    string
	Size   int64
}

// URI returns the object as s3://bucket/key.
func (o Object) URI() string {
	return fmt.Sprintf("s3://%s/%s", o.Bucket, o.Key)
}

// IsS3URI reports whether s names an S3 location.
func IsS3URI(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

// ParseS3URI parses an S3 URI into bucket and key.
// Format: s3://bucket/key/path
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 1 || parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}

	return bucket, key, nil
}

// sanitizeFilename converts an S3 key to a safe local filename.
// The extension survives so compressed and parquet inputs are recognized.
func sanitizeFilename(key string) string {
	base := filepath.Base(key)
	if base == "." || base == "/" || base == ".." {
		return "object"
	}
	return base
}
