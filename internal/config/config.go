package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vietdv277/tierctl/internal/retry"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// EnvPrefix is the prefix of environment variable overrides (TIERCTL_AWS_REGION, ...)
const EnvPrefix = "TIERCTL"

// Config represents the application configuration
type Config struct {
	Project         string            `yaml:"project" mapstructure:"project"`
	AWSProfile      string            `yaml:"aws_profile" mapstructure:"aws_profile"`
	AWSRegion       string            `yaml:"aws_region" mapstructure:"aws_region"`
	ImageID         string            `yaml:"image_id" mapstructure:"image_id"`
	InstanceType    string            `yaml:"instance_type" mapstructure:"instance_type"`
	KeyName         string            `yaml:"key_name" mapstructure:"key_name"`
	Images          map[string]string `yaml:"images" mapstructure:"images"`
	DatabaseName    string            `yaml:"database_name" mapstructure:"database_name"`
	HealthCheckPath string            `yaml:"health_check_path" mapstructure:"health_check_path"`
	ManifestPath    string            `yaml:"manifest_path" mapstructure:"manifest_path"`
	Scaling         Scaling           `yaml:"scaling" mapstructure:"scaling"`
	Retry           retry.Policy      `yaml:"retry" mapstructure:"retry"`
	Backup          Backup            `yaml:"backup" mapstructure:"backup"`
	Notify          Notify            `yaml:"notify" mapstructure:"notify"`
}

// Scaling holds the fixed capacity of every scaling group
type Scaling struct {
	MinSize         int32 `yaml:"min_size" mapstructure:"min_size"`
	MaxSize         int32 `yaml:"max_size" mapstructure:"max_size"`
	DesiredCapacity int32 `yaml:"desired_capacity" mapstructure:"desired_capacity"`
}

// Backup configures the scheduled database backup function
type Backup struct {
	FunctionName  string   `yaml:"function_name" mapstructure:"function_name"`
	RoleName      string   `yaml:"role_name" mapstructure:"role_name"`
	Bucket        string   `yaml:"bucket" mapstructure:"bucket"`
	MongoURI      string   `yaml:"mongo_uri" mapstructure:"mongo_uri"` // literal, ssm:<name> or secretsmanager:<id>
	RetentionDays int      `yaml:"retention_days" mapstructure:"retention_days"`
	SourceFile    string   `yaml:"source_file" mapstructure:"source_file"`
	Runtime       string   `yaml:"runtime" mapstructure:"runtime"`
	Handler       string   `yaml:"handler" mapstructure:"handler"`
	MemoryMB      int32    `yaml:"memory_mb" mapstructure:"memory_mb"`
	TimeoutSec    int32    `yaml:"timeout_sec" mapstructure:"timeout_sec"`
	Layers        []string `yaml:"layers" mapstructure:"layers"`
	Schedule      string   `yaml:"schedule" mapstructure:"schedule"`
}

// Notify configures topics, the chat relay and email
type Notify struct {
	SuccessTopic      string   `yaml:"success_topic" mapstructure:"success_topic"`
	FailureTopic      string   `yaml:"failure_topic" mapstructure:"failure_topic"`
	PublishOutcome    bool     `yaml:"publish_outcome" mapstructure:"publish_outcome"`
	WebhookURL        string   `yaml:"webhook_url" mapstructure:"webhook_url"` // literal, ssm:<name> or secretsmanager:<id>
	RelayFunctionName string   `yaml:"relay_function_name" mapstructure:"relay_function_name"`
	RelayRoleName     string   `yaml:"relay_role_name" mapstructure:"relay_role_name"`
	RelaySourceFile   string   `yaml:"relay_source_file" mapstructure:"relay_source_file"`
	EmailSender       string   `yaml:"email_sender" mapstructure:"email_sender"`
	EmailRecipients   []string `yaml:"email_recipients" mapstructure:"email_recipients"`
}

// Default returns the configuration used when no file or override is present
func Default() *Config {
	return &Config{
		Project:      "mernapp-rbrk-v1",
		AWSRegion:    "us-west-2",
		ImageID:      "ami-05f991c49d264708f", // Ubuntu 20.04 LTS
		InstanceType: "t2.micro",
		KeyName:      "Severless_rbrk",
		Images: map[string]string{
			string(types.ServiceBackend1): "975050024946.dkr.ecr.us-west-2.amazonaws.com/ranyabrkumar:mern-helloservice_v20",
			string(types.ServiceBackend2): "975050024946.dkr.ecr.us-west-2.amazonaws.com/ranyabrkumar:mern-profileservice_v20",
			string(types.ServiceFrontend): "975050024946.dkr.ecr.us-west-2.amazonaws.com/ranyabrkumar:mern-frontend_v20",
			string(types.ServiceMongoDB):  "mongo:latest",
		},
		DatabaseName:    "mernapp",
		HealthCheckPath: "/",
		Scaling: Scaling{
			MinSize:         1,
			MaxSize:         2,
			DesiredCapacity: 1,
		},
		Retry: retry.Policy{
			MaxAttempts:     10,
			InitialInterval: 2 * time.Second,
			MaxInterval:     20 * time.Second,
			MaxElapsed:      5 * time.Minute,
		},
		Backup: Backup{
			FunctionName:  "MongoDBBackupLambda",
			RoleName:      "MongoDBBackupLambdaRole",
			Bucket:        "mernapp-db-rbrk2",
			MongoURI:      "mongodb://44.250.98.224:27017/mernapp",
			RetentionDays: 7,
			SourceFile:    "backup/lambda_function.py",
			Runtime:       "python3.11",
			Handler:       "lambda_function.lambda_handler",
			MemoryMB:      512,
			TimeoutSec:    300,
			Layers:        []string{"arn:aws:lambda:us-west-2:975050024946:layer:mongodump_rbrk:1"},
			Schedule:      "rate(1 day)",
		},
		Notify: Notify{
			SuccessTopic:      "DeploymentSuccess",
			FailureTopic:      "DeploymentFailure",
			RelayFunctionName: "DeploymentSlackRelay",
			RelayRoleName:     "DeploymentSlackRelayRole",
			RelaySourceFile:   "relay/bootstrap",
		},
	}
}

// GetConfigDir returns the config directory path (~/.config/tierctl)
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tierctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tierctl"
	}
	return filepath.Join(home, ".config", "tierctl")
}

// GetConfigPath returns the config file path (~/.config/tierctl/config.yaml)
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load reads the configuration file at path on top of the defaults and
// applies TIERCTL_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.ManifestPath == "" {
		cfg.ManifestPath = cfg.Project + "-manifest.yaml"
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed
func Save(path string, cfg *Config) error {
	if path == "" {
		path = GetConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Init writes the default config to path. An existing file is an
// ErrAlreadyExists error unless force is set.
func Init(path string, force bool) error {
	if path == "" {
		path = GetConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s: %w, use --force to overwrite", path, provider.ErrAlreadyExists)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	return Save(path, Default())
}

// Image returns the container image configured for a service
func (c *Config) Image(svc types.Service) string {
	return c.Images[string(svc)]
}

// Validate checks the settings provisioning depends on
func (c *Config) Validate() error {
	var errs []error

	if c.Project == "" {
		errs = append(errs, errors.New("project must be set"))
	}
	if c.ImageID == "" {
		errs = append(errs, errors.New("image_id must be set"))
	}
	if c.InstanceType == "" {
		errs = append(errs, errors.New("instance_type must be set"))
	}
	for _, svc := range append([]types.Service{types.ServiceMongoDB}, types.Services...) {
		if c.Image(svc) == "" {
			errs = append(errs, fmt.Errorf("images.%s must be set", svc))
		}
	}

	s := c.Scaling
	if s.MinSize < 0 || s.MinSize > s.MaxSize {
		errs = append(errs, fmt.Errorf("scaling: min_size %d must be between 0 and max_size %d", s.MinSize, s.MaxSize))
	}
	if s.DesiredCapacity < s.MinSize || s.DesiredCapacity > s.MaxSize {
		errs = append(errs, fmt.Errorf("scaling: desired_capacity %d must be between %d and %d", s.DesiredCapacity, s.MinSize, s.MaxSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", provider.ErrInvalidArgument, errors.Join(errs...))
	}
	return nil
}

// Names derives the idempotency keys of every resource from the project name
type Names struct {
	project string
}

// NamesFor returns the naming scheme for a project
func NamesFor(project string) Names {
	return Names{project: project}
}

func (n Names) LoadBalancer() string { return n.project + "-alb" }
func (n Names) DatabaseNode() string { return n.project + "-mongo" }

func (n Names) TargetGroup(svc types.Service) string {
	return fmt.Sprintf("%s-%s-tg", n.project, svc.Token())
}

func (n Names) LaunchTemplate(svc types.Service) string {
	return fmt.Sprintf("%s-%s-lt", n.project, svc.Token())
}

func (n Names) ScalingGroup(svc types.Service) string {
	return fmt.Sprintf("%s-%s-asg", n.project, svc.Token())
}

func (n Names) Container(svc types.Service) string {
	return fmt.Sprintf("%s-%s", n.project, svc)
}
