package cloud

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// mockSageMaker implements SageMakerAPI for testing. Unset function fields
// fall back to benign defaults so each test only wires what it asserts on.
type mockSageMaker struct {
	createTrainingJobFn    func(ctx context.Context, params *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)
	describeTrainingJobFn  func(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)
	createModelFn          func(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	createEndpointConfigFn func(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	createEndpointFn       func(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
	updateEndpointFn       func(ctx context.Context, params *sagemaker.UpdateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdateEndpointOutput, error)
	describeEndpointFn     func(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
	createTransformJobFn   func(ctx context.Context, params *sagemaker.CreateTransformJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTransformJobOutput, error)
}

// CreateTrainingJob implements SageMakerAPI.
func (m *mockSageMaker) CreateTrainingJob(ctx context.Context, params *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error) {
	if m.createTrainingJobFn != nil {
		return m.createTrainingJobFn(ctx, params, optFns...)
	}
	return &sagemaker.CreateTrainingJobOutput{}, nil
}

// DescribeTrainingJob implements SageMakerAPI.
func (m *mockSageMaker) DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error) {
	if m.describeTrainingJobFn != nil {
		return m.describeTrainingJobFn(ctx, params, optFns...)
	}
	return &sagemaker.DescribeTrainingJobOutput{
		TrainingJobStatus: types.TrainingJobStatusCompleted,
		ModelArtifacts: &types.ModelArtifacts{
			S3ModelArtifacts: aws.String("s3://bucket/output/model.tar.gz"),
		},
	}, nil
}

// CreateModel implements SageMakerAPI.
func (m *mockSageMaker) CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error) {
	if m.createModelFn != nil {
		return m.createModelFn(ctx, params, optFns...)
	}
	return &sagemaker.CreateModelOutput{}, nil
}

// CreateEndpointConfig implements SageMakerAPI.
func (m *mockSageMaker) CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error) {
	if m.createEndpointConfigFn != nil {
		return m.createEndpointConfigFn(ctx, params, optFns...)
	}
	return &sagemaker.CreateEndpointConfigOutput{}, nil
}

// CreateEndpoint implements SageMakerAPI.
func (m *mockSageMaker) CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error) {
	if m.createEndpointFn != nil {
		return m.createEndpointFn(ctx, params, optFns...)
	}
	return &sagemaker.CreateEndpointOutput{}, nil
}

// UpdateEndpoint implements SageMakerAPI.
func (m *mockSageMaker) UpdateEndpoint(ctx context.Context, params *sagemaker.UpdateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdateEndpointOutput, error) {
	if m.updateEndpointFn != nil {
		return m.updateEndpointFn(ctx, params, optFns...)
	}
	return &sagemaker.UpdateEndpointOutput{}, nil
}

// DescribeEndpoint implements SageMakerAPI.
func (m *mockSageMaker) DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
	if m.describeEndpointFn != nil {
		return m.describeEndpointFn(ctx, params, optFns...)
	}
	return &sagemaker.DescribeEndpointOutput{
		EndpointStatus: types.EndpointStatusInService,
	}, nil
}

// CreateTransformJob implements SageMakerAPI.
func (m *mockSageMaker) CreateTransformJob(ctx context.Context, params *sagemaker.CreateTransformJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTransformJobOutput, error) {
	if m.createTransformJobFn != nil {
		return m.createTransformJobFn(ctx, params, optFns...)
	}
	return &sagemaker.CreateTransformJobOutput{}, nil
}

// mockUploader implements UploadAPI for testing.
type mockUploader struct {
	uploadFn func(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Upload implements UploadAPI.
func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, input, opts...)
	}
	return &manager.UploadOutput{}, nil
}

// newTestClient assembles a facade around mocks with fast waiter polling.
func newTestClient(sm SageMakerAPI, up UploadAPI) *Client {
	return &Client{
		sm:           sm,
		uploader:     up,
		role:         "arn:aws:iam::123456789012:role/SageMakerRole",
		region:       "us-east-1",
		now:          func() time.Time { return time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC) },
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		waitMinDelay: time.Millisecond,
		waitMaxDelay: 2 * time.Millisecond,
	}
}
