package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sagifyml/sagify/internal/cloud"
	"github.com/sagifyml/sagify/internal/config"
	"github.com/sagifyml/sagify/internal/logger"
	"github.com/sagifyml/sagify/internal/storage"
	"github.com/sagifyml/sagify/internal/tags"
)

// operatorFactory builds the cloud facade. Swapped for a mock in tests.
type operatorFactory func(ctx context.Context, opts cloud.Options) (CloudOperator, error)

// storeFactory opens the job ledger. Swapped for a mock in tests.
type storeFactory func(path string) (JobStore, error)

// app bundles the CLI with its external collaborators.
type app struct {
	newOperator operatorFactory
	openStore   storeFactory
	out         io.Writer
}

// NewApp creates and configures the sagify CLI application.
func NewApp() *cli.App {
	a := &app{
		newOperator: func(ctx context.Context, opts cloud.Options) (CloudOperator, error) {
			return cloud.New(ctx, opts)
		},
		openStore: func(path string) (JobStore, error) {
			return storage.InitDB(storage.Config{DatabasePath: path, LogLevel: "silent"})
		},
		out: os.Stdout,
	}
	return a.build()
}

func (a *app) build() *cli.App {
	return &cli.App{
		Name:    "sagify",
		Usage:   "Train and deploy machine learning models on AWS SageMaker",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   ".",
				Usage:   "project root directory containing sagify/config.json",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"SAGIFY_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "log format (json, text)",
				EnvVars: []string{"SAGIFY_LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write sagify/config.json for this project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "image-name", Required: true, Usage: "docker image name (without tag)"},
					&cli.StringFlag{Name: "aws-profile", Required: true, Usage: "AWS credentials profile"},
					&cli.StringFlag{Name: "aws-region", Required: true, Usage: "AWS region"},
				},
				Action: a.initProject,
			},
			{
				Name:  "upload-data",
				Usage: "Upload local data to S3",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input-dir", Aliases: []string{"i"}, Required: true, Usage: "local data directory or file"},
					&cli.StringFlag{Name: "s3-dir", Aliases: []string{"s"}, Required: true, Usage: "S3 destination, e.g. s3://bucket/prefix"},
				},
				Action: a.uploadData,
			},
			{
				Name:  "train",
				Usage: "Train model(s) on SageMaker",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input-s3-dir", Aliases: []string{"i"}, Required: true, Usage: "S3 location of input data"},
					&cli.StringFlag{Name: "output-s3-dir", Aliases: []string{"o"}, Required: true, Usage: "S3 location for output (models, etc)"},
					&cli.StringFlag{Name: "ec2-type", Aliases: []string{"e"}, Required: true, Usage: "EC2 instance type, e.g. ml.m5.large"},
					&cli.IntFlag{Name: "instance-count", Aliases: []string{"n"}, Value: 1, Usage: "number of training instances"},
					&cli.StringFlag{Name: "hyperparams-file", Aliases: []string{"f"}, Usage: "JSON or YAML hyperparameter file"},
					&cli.IntFlag{Name: "volume-size", Aliases: []string{"v"}, Value: 30, Usage: "EBS volume size in GB"},
					&cli.IntFlag{Name: "time-out", Aliases: []string{"t"}, Value: 24 * 60 * 60, Usage: "training time-out in seconds"},
					&cli.StringFlag{Name: "docker-tag", Value: "latest", Usage: "docker tag of the training image"},
					&cli.StringFlag{Name: "aws-role", Usage: "IAM role assumed by SageMaker (derived from the caller identity when omitted)"},
					&cli.StringFlag{Name: "external-id", Usage: "external id used when assuming the IAM role"},
					&cli.StringFlag{Name: "base-job-name", Usage: "prefix for the generated training job name"},
					&cli.StringFlag{Name: "job-name", Usage: "explicit training job name, overrides base-job-name"},
					&cli.StringFlag{Name: "tags", Usage: "job tags as key=value;key=value"},
				},
				Action: a.train,
			},
			{
				Name:  "deploy",
				Usage: "Deploy model(s) as a SageMaker endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "s3-model-location", Aliases: []string{"m"}, Required: true, Usage: "S3 location of the trained model"},
					&cli.IntFlag{Name: "num-instances", Aliases: []string{"n"}, Required: true, Usage: "number of serving instances"},
					&cli.StringFlag{Name: "ec2-type", Aliases: []string{"e"}, Required: true, Usage: "EC2 instance type, e.g. ml.m5.large"},
					&cli.StringFlag{Name: "docker-tag", Value: "latest", Usage: "docker tag of the serving image"},
					&cli.StringFlag{Name: "aws-role", Usage: "IAM role assumed by SageMaker (derived from the caller identity when omitted)"},
					&cli.StringFlag{Name: "external-id", Usage: "external id used when assuming the IAM role"},
					&cli.StringFlag{Name: "endpoint-name", Usage: "endpoint name (defaults to the image name)"},
					&cli.StringFlag{Name: "tags", Usage: "endpoint tags as key=value;key=value"},
				},
				Action: a.deploy,
			},
			{
				Name:  "batch-transform",
				Usage: "Run a batch inference job over a dataset on SageMaker",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "s3-model-location", Aliases: []string{"m"}, Required: true, Usage: "S3 location of the trained model"},
					&cli.StringFlag{Name: "s3-input-location", Aliases: []string{"i"}, Required: true, Usage: "S3 location of input data"},
					&cli.StringFlag{Name: "s3-output-location", Aliases: []string{"o"}, Required: true, Usage: "S3 location for predictions"},
					&cli.IntFlag{Name: "num-instances", Aliases: []string{"n"}, Required: true, Usage: "number of transform instances"},
					&cli.StringFlag{Name: "ec2-type", Aliases: []string{"e"}, Required: true, Usage: "EC2 instance type, e.g. ml.m5.large"},
					&cli.StringFlag{Name: "docker-tag", Value: "latest", Usage: "docker tag of the serving image"},
					&cli.StringFlag{Name: "aws-role", Usage: "IAM role assumed by SageMaker (derived from the caller identity when omitted)"},
					&cli.StringFlag{Name: "external-id", Usage: "external id used when assuming the IAM role"},
					&cli.StringFlag{Name: "tags", Usage: "job tags as key=value;key=value"},
				},
				Action: a.batchTransform,
			},
			{
				Name:  "jobs",
				Usage: "List platform operations recorded in the local ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: "filter by kind (upload, training, deployment, transform)"},
					&cli.StringFlag{Name: "db", Usage: "ledger database path (defaults to <dir>/sagify/sagify.db)"},
				},
				Action: a.listJobs,
			},
		},
	}
}

// newLogger builds the command logger from the global flags.
func newLogger(c *cli.Context) (*slog.Logger, error) {
	log, err := logger.New(c.String("log-level"), c.String("log-format"))
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, nil
}

// initProject implements the init command.
func (a *app) initProject(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}

	dir := c.String("dir")
	cfg := &config.Config{
		ImageName:  c.String("image-name"),
		AWSProfile: c.String("aws-profile"),
		AWSRegion:  c.String("aws-region"),
	}
	if err := cfg.Save(dir); err != nil {
		return err
	}

	log.Info("project initialized", "config", config.Path(dir))
	fmt.Fprintln(a.out, config.Path(dir))
	return nil
}

// uploadData implements the upload-data command.
func (a *app) uploadData(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}

	dir := c.String("dir")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	operator, err := a.newOperator(c.Context, cloud.Options{
		Profile: cfg.AWSProfile,
		Region:  cfg.AWSRegion,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	log.Info("uploading data", "input", c.String("input-dir"), "destination", c.String("s3-dir"))
	result, err := operator.UploadData(c.Context, c.String("input-dir"), c.String("s3-dir"))
	if err != nil {
		return err
	}

	a.recordJob(c, log, &storage.Job{
		Kind:           storage.KindUpload,
		Name:           c.String("input-dir"),
		InputLocation:  c.String("input-dir"),
		OutputLocation: result,
		Region:         cfg.AWSRegion,
		Result:         result,
	})

	log.Info("data uploaded", "destination", result)
	fmt.Fprintln(a.out, result)
	return nil
}

// train implements the train command.
func (a *app) train(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}

	dir := c.String("dir")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	// Local validation happens before any network call.
	jobTags, err := tags.Parse(c.String("tags"))
	if err != nil {
		return err
	}
	var hyperparams map[string]any
	if path := c.String("hyperparams-file"); path != "" {
		hyperparams, err = config.LoadHyperparams(path)
		if err != nil {
			return err
		}
	}

	operator, err := a.newOperator(c.Context, cloud.Options{
		Profile:    cfg.AWSProfile,
		Region:     cfg.AWSRegion,
		RoleARN:    c.String("aws-role"),
		ExternalID: c.String("external-id"),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	in := cloud.TrainInput{
		Image:           cfg.ImageRef(c.String("docker-tag")),
		InputLocation:   c.String("input-s3-dir"),
		OutputLocation:  c.String("output-s3-dir"),
		InstanceType:    c.String("ec2-type"),
		InstanceCount:   int32(c.Int("instance-count")),
		VolumeSizeGB:    int32(c.Int("volume-size")),
		MaxRuntime:      time.Duration(c.Int("time-out")) * time.Second,
		Hyperparameters: hyperparams,
		BaseJobName:     c.String("base-job-name"),
		JobName:         c.String("job-name"),
		Tags:            jobTags,
	}

	log.Info("starting training", "image", in.Image, "input", in.InputLocation, "output", in.OutputLocation)
	modelLocation, err := operator.Train(c.Context, in)
	if err != nil {
		return err
	}

	ledgerName := in.JobName
	if ledgerName == "" {
		ledgerName = in.Image
	}
	a.recordJob(c, log, &storage.Job{
		Kind:           storage.KindTraining,
		Name:           ledgerName,
		Image:          in.Image,
		InputLocation:  in.InputLocation,
		OutputLocation: in.OutputLocation,
		InstanceType:   in.InstanceType,
		InstanceCount:  in.InstanceCount,
		Region:         cfg.AWSRegion,
		Result:         modelLocation,
	})

	log.Info("training succeeded", "model", modelLocation)
	fmt.Fprintln(a.out, modelLocation)
	return nil
}

// deploy implements the deploy command.
func (a *app) deploy(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}

	dir := c.String("dir")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	endpointTags, err := tags.Parse(c.String("tags"))
	if err != nil {
		return err
	}

	operator, err := a.newOperator(c.Context, cloud.Options{
		Profile:    cfg.AWSProfile,
		Region:     cfg.AWSRegion,
		RoleARN:    c.String("aws-role"),
		ExternalID: c.String("external-id"),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	in := cloud.DeployInput{
		Image:         cfg.ImageRef(c.String("docker-tag")),
		ModelLocation: c.String("s3-model-location"),
		InstanceType:  c.String("ec2-type"),
		InstanceCount: int32(c.Int("num-instances")),
		EndpointName:  c.String("endpoint-name"),
		Tags:          endpointTags,
	}

	log.Info("starting deployment", "image", in.Image, "model", in.ModelLocation)
	endpoint, err := operator.Deploy(c.Context, in)
	if err != nil {
		return err
	}

	a.recordJob(c, log, &storage.Job{
		Kind:          storage.KindDeployment,
		Name:          endpoint,
		Image:         in.Image,
		InputLocation: in.ModelLocation,
		InstanceType:  in.InstanceType,
		InstanceCount: in.InstanceCount,
		Region:        cfg.AWSRegion,
		Result:        endpoint,
	})

	log.Info("deployment succeeded", "endpoint", endpoint)
	fmt.Fprintln(a.out, endpoint)
	return nil
}

// batchTransform implements the batch-transform command.
func (a *app) batchTransform(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}

	dir := c.String("dir")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	jobTags, err := tags.Parse(c.String("tags"))
	if err != nil {
		return err
	}

	operator, err := a.newOperator(c.Context, cloud.Options{
		Profile:    cfg.AWSProfile,
		Region:     cfg.AWSRegion,
		RoleARN:    c.String("aws-role"),
		ExternalID: c.String("external-id"),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	in := cloud.BatchTransformInput{
		Image:          cfg.ImageRef(c.String("docker-tag")),
		ModelLocation:  c.String("s3-model-location"),
		InputLocation:  c.String("s3-input-location"),
		OutputLocation: c.String("s3-output-location"),
		InstanceType:   c.String("ec2-type"),
		InstanceCount:  int32(c.Int("num-instances")),
		Tags:           jobTags,
	}

	log.Info("submitting batch transform", "image", in.Image, "input", in.InputLocation, "output", in.OutputLocation)
	jobName, err := operator.BatchTransform(c.Context, in)
	if err != nil {
		return err
	}

	a.recordJob(c, log, &storage.Job{
		Kind:           storage.KindTransform,
		Name:           jobName,
		Image:          in.Image,
		InputLocation:  in.InputLocation,
		OutputLocation: in.OutputLocation,
		InstanceType:   in.InstanceType,
		InstanceCount:  in.InstanceCount,
		Region:         cfg.AWSRegion,
		Result:         jobName,
	})

	// The job runs asynchronously on the platform; acceptance is success.
	log.Info("batch transform submitted", "job", jobName)
	fmt.Fprintln(a.out, jobName)
	return nil
}

// recordJob writes a ledger entry for an accepted platform operation.
// Ledger failures are logged, never surfaced: the platform call already
// succeeded.
func (a *app) recordJob(c *cli.Context, log *slog.Logger, job *storage.Job) {
	path := c.String("db")
	if path == "" {
		path = storage.DefaultPath(c.String("dir"))
	}

	store, err := a.openStore(path)
	if err != nil {
		log.Warn("failed to open job ledger", "db", path, "error", err)
		return
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn("failed to close job ledger", "error", closeErr)
		}
	}()

	if err := store.RecordJob(job); err != nil {
		log.Warn("failed to record job", "kind", job.Kind, "error", err)
	}
}
