package cloud

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
)

// ErrInputPathMissing is returned when the local upload source does not exist.
var ErrInputPathMissing = errors.New("input path does not exist")

// UploadAPI is the subset of the S3 upload manager the facade uses.
type UploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// UploadData uploads a local file or directory tree to S3 and returns the
// destination URI. A bare bucket URI keys uploads under the source
// directory's name, matching the platform convention.
func (c *Client) UploadData(ctx context.Context, inputPath, s3Dir string) (string, error) {
	loc, err := ParseS3Location(s3Dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(inputPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrInputPathMissing, inputPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", inputPath, err)
	}

	if loc.Prefix == "" {
		abs, err := filepath.Abs(inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", inputPath, err)
		}
		loc.Prefix = filepath.Base(abs)
	}

	var files int
	var bytes int64
	if !info.IsDir() {
		n, err := c.uploadFile(ctx, loc.Bucket, path.Join(loc.Prefix, filepath.Base(inputPath)), inputPath)
		if err != nil {
			return "", err
		}
		files, bytes = 1, n
	} else {
		err = filepath.WalkDir(inputPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(inputPath, p)
			if err != nil {
				return err
			}
			n, err := c.uploadFile(ctx, loc.Bucket, path.Join(loc.Prefix, filepath.ToSlash(rel)), p)
			if err != nil {
				return err
			}
			files++
			bytes += n
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload %s: %w", inputPath, err)
		}
	}

	c.logger.Info("upload complete",
		"destination", loc.URI(),
		"files", files,
		"size", humanize.Bytes(uint64(bytes)))
	return loc.URI(), nil
}

// uploadFile uploads a single file and returns its size in bytes.
func (c *Client) uploadFile(ctx context.Context, bucket, key, localPath string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	if _, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return 0, fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, bucket, key, err)
	}

	c.logger.Debug("uploaded file",
		"key", key,
		"size", humanize.Bytes(uint64(stat.Size())))
	return stat.Size(), nil
}
