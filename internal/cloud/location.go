package cloud

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for S3 location parsing
var (
	ErrNotS3URI = errors.New("location must start with s3://")
	ErrNoBucket = errors.New("S3 location has no bucket")
)

// S3Location is a parsed s3://bucket/prefix URI.
type S3Location struct {
	Bucket string
	Prefix string
}

// ParseS3Location splits an s3://bucket/prefix URI into bucket and key
// prefix. The prefix may be empty for a bare bucket URI.
func ParseS3Location(uri string) (S3Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return S3Location{}, fmt.Errorf("%w: %q", ErrNotS3URI, uri)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return S3Location{}, fmt.Errorf("%w: %q", ErrNoBucket, uri)
	}
	return S3Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// URI renders the location back to s3:// form.
func (l S3Location) URI() string {
	if l.Prefix == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Prefix
}
