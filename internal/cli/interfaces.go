// Package cli provides the sagify command-line interface with testable
// abstractions over the cloud facade and the job ledger.
package cli

import (
	"context"

	"github.com/sagifyml/sagify/internal/cloud"
	"github.com/sagifyml/sagify/internal/storage"
)

// CloudOperator abstracts the platform facade for testing.
// Following Dave Cheney's principle: "Accept interfaces, return structs"
type CloudOperator interface {
	// UploadData uploads a local file or directory to S3 and returns the
	// destination URI.
	UploadData(ctx context.Context, inputPath, s3Dir string) (string, error)

	// Train runs a training job to completion and returns the model
	// artifact location.
	Train(ctx context.Context, in cloud.TrainInput) (string, error)

	// Deploy creates or updates a hosted endpoint and returns its name.
	Deploy(ctx context.Context, in cloud.DeployInput) (string, error)

	// BatchTransform submits an asynchronous batch inference job and
	// returns its name.
	BatchTransform(ctx context.Context, in cloud.BatchTransformInput) (string, error)
}

// JobStore abstracts ledger operations for testing.
type JobStore interface {
	// RecordJob inserts a new ledger entry.
	RecordJob(job *storage.Job) error

	// ListAll returns all ledger entries, newest first.
	ListAll() ([]*storage.Job, error)

	// ListByKind returns entries of one kind, newest first.
	ListByKind(kind string) ([]*storage.Job, error)

	// Close closes the underlying database.
	Close() error
}
