package cli

import (
	"context"

	"github.com/sagifyml/sagify/internal/cloud"
	"github.com/sagifyml/sagify/internal/storage"
)

// mockOperator implements CloudOperator for testing.
type mockOperator struct {
	uploadDataFn     func(ctx context.Context, inputPath, s3Dir string) (string, error)
	trainFn          func(ctx context.Context, in cloud.TrainInput) (string, error)
	deployFn         func(ctx context.Context, in cloud.DeployInput) (string, error)
	batchTransformFn func(ctx context.Context, in cloud.BatchTransformInput) (string, error)
}

// UploadData implements CloudOperator.
func (m *mockOperator) UploadData(ctx context.Context, inputPath, s3Dir string) (string, error) {
	if m.uploadDataFn != nil {
		return m.uploadDataFn(ctx, inputPath, s3Dir)
	}
	return s3Dir, nil
}

// Train implements CloudOperator.
func (m *mockOperator) Train(ctx context.Context, in cloud.TrainInput) (string, error) {
	if m.trainFn != nil {
		return m.trainFn(ctx, in)
	}
	return "s3://bucket/output/model.tar.gz", nil
}

// Deploy implements CloudOperator.
func (m *mockOperator) Deploy(ctx context.Context, in cloud.DeployInput) (string, error) {
	if m.deployFn != nil {
		return m.deployFn(ctx, in)
	}
	return "my-model", nil
}

// BatchTransform implements CloudOperator.
func (m *mockOperator) BatchTransform(ctx context.Context, in cloud.BatchTransformInput) (string, error) {
	if m.batchTransformFn != nil {
		return m.batchTransformFn(ctx, in)
	}
	return "my-model-transform", nil
}

// mockStore implements JobStore for testing.
type mockStore struct {
	recorded      []*storage.Job
	listAllFn     func() ([]*storage.Job, error)
	listByKindFn  func(kind string) ([]*storage.Job, error)
	recordJobFn   func(job *storage.Job) error
	closeFn       func() error
	listedByKind  string
	listAllCalled bool
}

// RecordJob implements JobStore.
func (m *mockStore) RecordJob(job *storage.Job) error {
	if m.recordJobFn != nil {
		return m.recordJobFn(job)
	}
	m.recorded = append(m.recorded, job)
	return nil
}

// ListAll implements JobStore.
func (m *mockStore) ListAll() ([]*storage.Job, error) {
	m.listAllCalled = true
	if m.listAllFn != nil {
		return m.listAllFn()
	}
	return nil, nil
}

// ListByKind implements JobStore.
func (m *mockStore) ListByKind(kind string) ([]*storage.Job, error) {
	m.listedByKind = kind
	if m.listByKindFn != nil {
		return m.listByKindFn(kind)
	}
	return nil, nil
}

// Close implements JobStore.
func (m *mockStore) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}
