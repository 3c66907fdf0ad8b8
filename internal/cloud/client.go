// Package cloud is a thin facade over the SageMaker and S3 clients. It
// builds platform requests from validated parameters, forwards them, and
// returns the platform's identifiers unchanged. Scheduling, provisioning
// and retries are the platform's responsibility, not ours.
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/sagifyml/sagify/internal/tags"
)

// endpointWaitTimeout bounds how long Deploy waits for an endpoint to come
// in service.
const endpointWaitTimeout = 60 * time.Minute

// trainWaitSlack is added to the training timeout when waiting for the job,
// covering instance provisioning and artifact upload time.
const trainWaitSlack = 30 * time.Minute

// SageMakerAPI is the subset of the SageMaker client the facade uses.
// Mirroring the SDK signatures keeps *sagemaker.Client a drop-in
// implementation while tests substitute function-field mocks.
type SageMakerAPI interface {
	CreateTrainingJob(ctx context.Context, params *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)
	DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)
	CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
	UpdateEndpoint(ctx context.Context, params *sagemaker.UpdateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdateEndpointOutput, error)
	DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
	CreateTransformJob(ctx context.Context, params *sagemaker.CreateTransformJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTransformJobOutput, error)
}

// Options configures the platform clients.
type Options struct {
	Profile    string
	Region     string
	RoleARN    string // optional; derived from the caller identity when empty
	ExternalID string // optional; assume RoleARN with this external id
	Logger     *slog.Logger
}

// Client is the cloud operations facade. Create instances with New, or
// assemble one by hand in tests.
type Client struct {
	sm       SageMakerAPI
	uploader UploadAPI
	role     string
	region   string
	now      func() time.Time
	logger   *slog.Logger

	// waiter poll bounds; zero means SDK defaults
	waitMinDelay time.Duration
	waitMaxDelay time.Duration
}

// New builds a facade backed by real AWS clients. The execution role is
// resolved from the caller identity when not given; when a role and an
// external id are both given, all platform calls run under that assumed
// role.
func New(ctx context.Context, opts Options) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithSharedConfigProfile(opts.Profile),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	stsClient := sts.NewFromConfig(awsCfg)
	role := opts.RoleARN
	if role == "" {
		role, err = ExecutionRole(ctx, stsClient)
		if err != nil {
			return nil, err
		}
	} else if opts.ExternalID != "" {
		awsCfg.Credentials = AssumeRoleCredentials(stsClient, role, opts.ExternalID)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		sm:       sagemaker.NewFromConfig(awsCfg),
		uploader: manager.NewUploader(s3.NewFromConfig(awsCfg)),
		role:     role,
		region:   opts.Region,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Role returns the execution role the facade operates with.
func (c *Client) Role() string {
	return c.role
}

// TrainInput carries the parameters for a training job.
type TrainInput struct {
	Image           string
	InputLocation   string
	OutputLocation  string
	InstanceType    string
	InstanceCount   int32
	VolumeSizeGB    int32
	MaxRuntime      time.Duration
	Hyperparameters map[string]any
	BaseJobName     string // optional prefix for the generated job name
	JobName         string // optional explicit name, overrides BaseJobName
	Tags            []tags.Tag
}

// Train creates a training job, waits for it to finish and returns the S3
// location of the trained model artifacts.
func (c *Client) Train(ctx context.Context, in TrainInput) (string, error) {
	input, err := ParseS3Location(in.InputLocation)
	if err != nil {
		return "", err
	}
	output, err := ParseS3Location(in.OutputLocation)
	if err != nil {
		return "", err
	}

	name := in.JobName
	if name == "" {
		base := in.BaseJobName
		if base == "" {
			base = imageBase(in.Image)
		}
		name = jobName(base, c.now())
	}

	hyperparams, err := stringifyHyperparams(in.Hyperparameters)
	if err != nil {
		return "", err
	}

	req := &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(name),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(in.Image),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		RoleArn: aws.String(c.role),
		InputDataConfig: []types.Channel{
			{
				ChannelName: aws.String("training"),
				DataSource: &types.DataSource{
					S3DataSource: &types.S3DataSource{
						S3DataType:             types.S3DataTypeS3Prefix,
						S3Uri:                  aws.String(input.URI()),
						S3DataDistributionType: types.S3DataDistributionFullyReplicated,
					},
				},
			},
		},
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(output.URI()),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(in.InstanceType),
			InstanceCount:  aws.Int32(in.InstanceCount),
			VolumeSizeInGB: aws.Int32(in.VolumeSizeGB),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(in.MaxRuntime.Seconds())),
		},
		HyperParameters: hyperparams,
		Tags:            toSageMakerTags(in.Tags),
	}

	if _, err := c.sm.CreateTrainingJob(ctx, req); err != nil {
		return "", fmt.Errorf("failed to create training job %s: %w", name, err)
	}
	c.logger.Info("training job created", "job", name, "input", input.URI(), "output", output.URI())

	waiter := sagemaker.NewTrainingJobCompletedOrStoppedWaiter(c.sm, func(o *sagemaker.TrainingJobCompletedOrStoppedWaiterOptions) {
		if c.waitMinDelay > 0 {
			o.MinDelay = c.waitMinDelay
		}
		if c.waitMaxDelay > 0 {
			o.MaxDelay = c.waitMaxDelay
		}
	})
	desc, err := waiter.WaitForOutput(ctx, &sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(name),
	}, in.MaxRuntime+trainWaitSlack)
	if err != nil {
		if final, derr := c.sm.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
			TrainingJobName: aws.String(name),
		}); derr == nil && aws.ToString(final.FailureReason) != "" {
			return "", fmt.Errorf("training job %s failed: %s", name, aws.ToString(final.FailureReason))
		}
		return "", fmt.Errorf("training job %s did not complete: %w", name, err)
	}
	if desc.TrainingJobStatus != types.TrainingJobStatusCompleted {
		return "", fmt.Errorf("training job %s finished with status %s", name, desc.TrainingJobStatus)
	}
	if desc.ModelArtifacts == nil || aws.ToString(desc.ModelArtifacts.S3ModelArtifacts) == "" {
		return "", fmt.Errorf("training job %s completed without model artifacts", name)
	}

	artifacts := aws.ToString(desc.ModelArtifacts.S3ModelArtifacts)
	c.logger.Info("training job completed", "job", name, "model", artifacts)
	return artifacts, nil
}

// DeployInput carries the parameters for a model deployment.
type DeployInput struct {
	Image         string
	ModelLocation string
	InstanceType  string
	InstanceCount int32
	EndpointName  string // optional; defaults to the image repository name
	Tags          []tags.Tag
}

// Deploy creates a model and endpoint configuration, then creates the
// endpoint or updates it when one of the same name already exists. It
// waits until the endpoint is in service and returns its name.
func (c *Client) Deploy(ctx context.Context, in DeployInput) (string, error) {
	if _, err := ParseS3Location(in.ModelLocation); err != nil {
		return "", err
	}

	base := imageBase(in.Image)
	modelName := jobName(base, c.now())
	endpointName := in.EndpointName
	if endpointName == "" {
		endpointName = sanitizeName(base)
	}

	if err := c.createModel(ctx, modelName, in.Image, in.ModelLocation, in.Tags); err != nil {
		return "", err
	}

	_, err := c.sm.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(modelName),
		ProductionVariants: []types.ProductionVariant{
			{
				VariantName:          aws.String("AllTraffic"),
				ModelName:            aws.String(modelName),
				InitialInstanceCount: aws.Int32(in.InstanceCount),
				InstanceType:         types.ProductionVariantInstanceType(in.InstanceType),
			},
		},
		Tags: toSageMakerTags(in.Tags),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create endpoint config %s: %w", modelName, err)
	}

	exists, err := c.endpointExists(ctx, endpointName)
	if err != nil {
		return "", err
	}
	if exists {
		if _, err := c.sm.UpdateEndpoint(ctx, &sagemaker.UpdateEndpointInput{
			EndpointName:       aws.String(endpointName),
			EndpointConfigName: aws.String(modelName),
		}); err != nil {
			return "", fmt.Errorf("failed to update endpoint %s: %w", endpointName, err)
		}
		c.logger.Info("endpoint update started", "endpoint", endpointName, "model", modelName)
	} else {
		if _, err := c.sm.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
			EndpointName:       aws.String(endpointName),
			EndpointConfigName: aws.String(modelName),
			Tags:               toSageMakerTags(in.Tags),
		}); err != nil {
			return "", fmt.Errorf("failed to create endpoint %s: %w", endpointName, err)
		}
		c.logger.Info("endpoint creation started", "endpoint", endpointName, "model", modelName)
	}

	waiter := sagemaker.NewEndpointInServiceWaiter(c.sm, func(o *sagemaker.EndpointInServiceWaiterOptions) {
		if c.waitMinDelay > 0 {
			o.MinDelay = c.waitMinDelay
		}
		if c.waitMaxDelay > 0 {
			o.MaxDelay = c.waitMaxDelay
		}
	})
	desc, err := waiter.WaitForOutput(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(endpointName),
	}, endpointWaitTimeout)
	if err != nil {
		return "", fmt.Errorf("endpoint %s did not come in service: %w", endpointName, err)
	}
	if desc.EndpointStatus != types.EndpointStatusInService {
		return "", fmt.Errorf("endpoint %s finished with status %s", endpointName, desc.EndpointStatus)
	}

	c.logger.Info("endpoint in service", "endpoint", endpointName)
	return endpointName, nil
}

// BatchTransformInput carries the parameters for a batch inference job.
type BatchTransformInput struct {
	Image          string
	ModelLocation  string
	InputLocation  string
	OutputLocation string
	InstanceType   string
	InstanceCount  int32
	Tags           []tags.Tag
}

// BatchTransform creates a model and submits a transform job over the
// input dataset. The job runs asynchronously on the platform; the returned
// name identifies it for bookkeeping only.
func (c *Client) BatchTransform(ctx context.Context, in BatchTransformInput) (string, error) {
	if _, err := ParseS3Location(in.ModelLocation); err != nil {
		return "", err
	}
	input, err := ParseS3Location(in.InputLocation)
	if err != nil {
		return "", err
	}
	output, err := ParseS3Location(in.OutputLocation)
	if err != nil {
		return "", err
	}

	name := jobName(imageBase(in.Image), c.now())
	if err := c.createModel(ctx, name, in.Image, in.ModelLocation, in.Tags); err != nil {
		return "", err
	}

	_, err = c.sm.CreateTransformJob(ctx, &sagemaker.CreateTransformJobInput{
		TransformJobName: aws.String(name),
		ModelName:        aws.String(name),
		TransformInput: &types.TransformInput{
			DataSource: &types.TransformDataSource{
				S3DataSource: &types.TransformS3DataSource{
					S3DataType: types.S3DataTypeS3Prefix,
					S3Uri:      aws.String(input.URI()),
				},
			},
		},
		TransformOutput: &types.TransformOutput{
			S3OutputPath: aws.String(output.URI()),
		},
		TransformResources: &types.TransformResources{
			InstanceType:  types.TransformInstanceType(in.InstanceType),
			InstanceCount: aws.Int32(in.InstanceCount),
		},
		Tags: toSageMakerTags(in.Tags),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create transform job %s: %w", name, err)
	}

	c.logger.Info("transform job submitted", "job", name, "input", input.URI(), "output", output.URI())
	return name, nil
}

// createModel registers a model from an image and trained artifacts.
func (c *Client) createModel(ctx context.Context, name, image, modelLocation string, ts []tags.Tag) error {
	_, err := c.sm.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName: aws.String(name),
		PrimaryContainer: &types.ContainerDefinition{
			Image:        aws.String(image),
			ModelDataUrl: aws.String(modelLocation),
		},
		ExecutionRoleArn: aws.String(c.role),
		Tags:             toSageMakerTags(ts),
	})
	if err != nil {
		return fmt.Errorf("failed to create model %s: %w", name, err)
	}
	return nil
}

// endpointExists reports whether an endpoint of the given name exists.
// SageMaker signals a missing endpoint with a ValidationException.
func (c *Client) endpointExists(ctx context.Context, name string) (bool, error) {
	_, err := c.sm.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
			return false, nil
		}
		return false, fmt.Errorf("failed to describe endpoint %s: %w", name, err)
	}
	return true, nil
}

// stringifyHyperparams converts the loaded hyperparameter mapping to the
// string-to-string form the platform accepts. Strings pass through
// verbatim; everything else is JSON-encoded.
func stringifyHyperparams(params map[string]any) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode hyperparameter %q: %w", k, err)
		}
		out[k] = string(encoded)
	}
	return out, nil
}

// toSageMakerTags converts parsed tags to the platform representation.
func toSageMakerTags(ts []tags.Tag) []types.Tag {
	if len(ts) == 0 {
		return nil
	}
	out := make([]types.Tag, 0, len(ts))
	for _, t := range ts {
		out = append(out, types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)})
	}
	return out
}
