// Package backup deploys the scheduled database backup function.
package backup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/bundle"
	"github.com/vietdv277/tierctl/internal/config"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// Environment variables the backup function reads
const (
	EnvBucket        = "BUCKET_NAME"
	EnvMongoURI      = "MONGO_URI"
	EnvRetentionDays = "RETENTION_DAYS"
)

// Cloud is the provider surface the deployer needs. *aws.Client implements it.
type Cloud interface {
	EnsureRole(ctx context.Context, spec aws.RoleSpec) (string, []types.Resource, error)
	ResolveValue(ctx context.Context, ref string) (string, error)
	DeployFunction(ctx context.Context, fn types.Function) (types.Resource, error)
	EnsureSchedule(ctx context.Context, rule, expression, functionARN string) (types.Resource, error)
}

// Deployer creates or updates the backup function and its schedule
type Deployer struct {
	Cloud  Cloud
	Config config.Backup
	Log    zerolog.Logger

	// Code overrides reading Config.SourceFile
	Code []byte
}

// Result lists what a deployment touched
type Result struct {
	FunctionARN string
	Resources   []types.Resource
}

// Deploy ensures the execution role, uploads the code with its
// environment and points the schedule at the function. An empty schedule
// skips the last step.
func (d *Deployer) Deploy(ctx context.Context) (*Result, error) {
	cfg := d.Config
	if cfg.FunctionName == "" || cfg.RoleName == "" {
		return nil, fmt.Errorf("backup function and role names must be set: %w", provider.ErrInvalidArgument)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup bucket must be set: %w", provider.ErrInvalidArgument)
	}

	result := &Result{}

	roleARN, resources, err := d.Cloud.EnsureRole(ctx, aws.RoleSpec{
		Name:       cfg.RoleName,
		Service:    "lambda.amazonaws.com",
		PolicyARNs: []string{aws.PolicyS3FullAccess, aws.PolicyLambdaBasicExecRole},
	})
	result.Resources = append(result.Resources, resources...)
	if err != nil {
		return result, err
	}
	d.Log.Info().Str("role", cfg.RoleName).Str("arn", roleARN).Msg("execution role ready")

	code := d.Code
	if code == nil {
		code, err = bundle.Zip(cfg.SourceFile)
		if err != nil {
			return result, err
		}
	}

	mongoURI, err := d.Cloud.ResolveValue(ctx, cfg.MongoURI)
	if err != nil {
		return result, fmt.Errorf("failed to resolve mongo_uri: %w", err)
	}

	fn, err := d.Cloud.DeployFunction(ctx, types.Function{
		Name:       cfg.FunctionName,
		RoleARN:    roleARN,
		Runtime:    cfg.Runtime,
		Handler:    cfg.Handler,
		Code:       code,
		MemoryMB:   cfg.MemoryMB,
		TimeoutSec: cfg.TimeoutSec,
		Environment: map[string]string{
			EnvBucket:        cfg.Bucket,
			EnvMongoURI:      mongoURI,
			EnvRetentionDays: strconv.Itoa(cfg.RetentionDays),
		},
		Layers:      cfg.Layers,
		Description: "Scheduled MongoDB backup to S3",
	})
	if err != nil {
		return result, err
	}
	result.Resources = append(result.Resources, fn)
	result.FunctionARN = fn.ID

	if cfg.Schedule == "" {
		d.Log.Info().Msg("no schedule configured, skipping rule")
		return result, nil
	}

	rule, err := d.Cloud.EnsureSchedule(ctx, cfg.FunctionName+"-schedule", cfg.Schedule, fn.ID)
	if err != nil {
		return result, err
	}
	result.Resources = append(result.Resources, rule)

	d.Log.Info().Str("function", cfg.FunctionName).Str("schedule", cfg.Schedule).Msg("backup function deployed")
	return result, nil
}
