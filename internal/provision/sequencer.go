// Package provision drives the ordered, create-if-absent provisioning of
// the three-tier stack and compensates for partial runs.
package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/bootscript"
	"github.com/vietdv277/tierctl/internal/config"
	"github.com/vietdv277/tierctl/internal/metrics"
	"github.com/vietdv277/tierctl/internal/relay"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// Cloud is the provider surface the sequencer drives. *aws.Client
// implements it.
type Cloud interface {
	Deleter

	CallerIdentity(ctx context.Context) (aws.Identity, error)
	Region() string
	DefaultNetwork(ctx context.Context) (types.Network, error)
	EnsureSecurityGroups(ctx context.Context, project, vpcID string) (types.SecurityGroups, []types.Resource, error)
	EnsureInstanceProfile(ctx context.Context, project string) (string, []types.Resource, error)
	EnsureDatabaseInstance(ctx context.Context, node types.DatabaseNode) (types.Instance, types.Resource, error)
	EnsureLoadBalancer(ctx context.Context, lb types.LoadBalancer) (types.LoadBalancer, types.Resource, error)
	EnsureTargetGroup(ctx context.Context, tg types.TargetGroup) (types.TargetGroup, types.Resource, error)
	EnsureListener(ctx context.Context, l types.Listener) (types.Listener, types.Resource, error)
	EnsureLaunchTemplate(ctx context.Context, bp types.Blueprint) (types.Resource, error)
	EnsureAutoScalingGroup(ctx context.Context, sg types.ScalingGroup) (types.Resource, error)
	EnsureTopic(ctx context.Context, name string) (string, error)
	Publish(ctx context.Context, topicARN, subject, message string) (string, error)
}

// Sequencer provisions the stack one step at a time. Each step finds its
// resource by name and creates it only when absent, so a run can be
// repeated after a failure.
type Sequencer struct {
	Cloud   Cloud
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *metrics.Metrics

	// Rollback deletes what the run created when a step fails
	Rollback bool
}

// run carries the values resolved by earlier steps
type run struct {
	manifest *Manifest
	names    config.Names
	network  types.Network
	groups   types.SecurityGroups
	profile  string
	targets  map[types.Service]types.TargetGroup
	lb       types.LoadBalancer
}

type step struct {
	name string
	fn   func(context.Context, *run) error
}

// Run performs every step in order. The manifest is returned and saved to
// the configured path whether or not the run succeeds. Resources created by
// earlier runs recorded at that path stay marked as created.
func (s *Sequencer) Run(ctx context.Context) (*Manifest, error) {
	cfg := s.Config
	prev, err := s.previousManifest()
	if err != nil {
		return nil, err
	}

	r := &run{
		manifest: &Manifest{
			RunID:     uuid.NewString(),
			Project:   cfg.Project,
			StartedAt: time.Now().UTC(),
		},
		names:   config.NamesFor(cfg.Project),
		targets: make(map[types.Service]types.TargetGroup),
	}
	log := s.Log.With().Str("run_id", r.manifest.RunID).Str("project", cfg.Project).Logger()

	steps := []step{
		{"identity", s.identity},
		{"network", s.resolveNetwork},
		{"security-groups", s.securityGroups},
		{"instance-profile", s.instanceProfile},
		{"database", s.database},
		{"load-balancer", s.loadBalancer},
		{"listeners", s.listeners},
	}
	for _, svc := range types.Services {
		steps = append(steps, step{"service-" + svc.String(), s.service(svc)})
	}

	var runErr error
	for _, step := range steps {
		log.Info().Str("step", step.name).Msg("starting step")
		timer := metrics.NewTimer()
		err := step.fn(ctx, r)
		s.Metrics.ObserveStep(step.name, timer.Duration())
		if err != nil {
			runErr = fmt.Errorf("step %s: %w", step.name, err)
			break
		}
	}

	for _, res := range r.manifest.Resources {
		s.Metrics.ObserveResource(res)
	}

	m := r.manifest
	if runErr != nil {
		m.Error = runErr.Error()
		log.Error().Err(runErr).Int("created", len(m.CreatedIn(m.RunID))).Msg("provisioning failed")

		if s.Rollback {
			log.Warn().Msg("rolling back resources created by this run")
			deleted, rbErr := Rollback(ctx, s.Cloud, m.CreatedIn(m.RunID), log, s.Metrics)
			m.Remove(deleted)
			m.RolledBack = rbErr == nil
			if rbErr != nil {
				log.Error().Err(rbErr).Msg("rollback incomplete, remaining resources stay in the manifest")
			}
		}
	} else {
		log.Info().Str("dns", m.LoadBalancerDNS).Int("resources", len(m.Resources)).Msg("provisioning complete")
	}

	m.Inherit(prev)
	m.FinishedAt = time.Now().UTC()
	s.Metrics.SetResult(runErr == nil)

	if cfg.ManifestPath != "" {
		if err := SaveManifest(cfg.ManifestPath, m); err != nil {
			log.Error().Err(err).Msg("failed to save manifest")
			runErr = errors.Join(runErr, err)
		} else {
			log.Info().Str("path", cfg.ManifestPath).Msg("saved manifest")
		}
	}

	if cfg.Notify.PublishOutcome {
		s.publishOutcome(ctx, log, m, runErr)
	}

	return m, runErr
}

// previousManifest returns the manifest an earlier run left at the
// configured path, or nil when there is none
func (s *Sequencer) previousManifest() (*Manifest, error) {
	path := s.Config.ManifestPath
	if path == "" {
		return nil, nil
	}

	prev, err := LoadManifest(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prev.Project != s.Config.Project {
		return nil, fmt.Errorf("manifest %s belongs to project %q: %w", path, prev.Project, provider.ErrInvalidArgument)
	}
	return prev, nil
}

func (s *Sequencer) identity(ctx context.Context, r *run) error {
	id, err := s.Cloud.CallerIdentity(ctx)
	if err != nil {
		return err
	}
	r.manifest.Account = id.Account
	r.manifest.Region = s.Cloud.Region()
	return nil
}

func (s *Sequencer) resolveNetwork(ctx context.Context, r *run) error {
	network, err := s.Cloud.DefaultNetwork(ctx)
	if err != nil {
		return err
	}
	if len(network.SubnetIDs) == 0 {
		return fmt.Errorf("VPC %s has no subnets", network.VPCID)
	}
	r.network = network
	return nil
}

func (s *Sequencer) securityGroups(ctx context.Context, r *run) error {
	groups, resources, err := s.Cloud.EnsureSecurityGroups(ctx, s.Config.Project, r.network.VPCID)
	r.manifest.Record(resources...)
	if err != nil {
		return err
	}
	r.groups = groups
	return nil
}

func (s *Sequencer) instanceProfile(ctx context.Context, r *run) error {
	profile, resources, err := s.Cloud.EnsureInstanceProfile(ctx, s.Config.Project)
	r.manifest.Record(resources...)
	if err != nil {
		return err
	}
	r.profile = profile
	return nil
}

func (s *Sequencer) database(ctx context.Context, r *run) error {
	script, err := s.bootScript(types.ServiceMongoDB, r)
	if err != nil {
		return err
	}

	_, res, err := s.Cloud.EnsureDatabaseInstance(ctx, types.DatabaseNode{
		Name:            r.names.DatabaseNode(),
		ImageID:         s.Config.ImageID,
		InstanceType:    s.Config.InstanceType,
		KeyName:         s.Config.KeyName,
		InstanceProfile: r.profile,
		SecurityGroupID: r.groups.Database,
		SubnetID:        r.network.SubnetIDs[0],
		UserData:        script,
	})
	if res.ID != "" {
		r.manifest.Record(res)
	}
	return err
}

// targetOrder is the order target groups and listeners are created in
var targetOrder = []types.Service{types.ServiceFrontend, types.ServiceBackend1, types.ServiceBackend2}

func (s *Sequencer) loadBalancer(ctx context.Context, r *run) error {
	lb, res, err := s.Cloud.EnsureLoadBalancer(ctx, types.LoadBalancer{
		Name:            r.names.LoadBalancer(),
		SubnetIDs:       r.network.SubnetIDs,
		SecurityGroupID: r.groups.Frontend,
	})
	if err != nil {
		return err
	}
	r.manifest.Record(res)
	r.lb = lb
	r.manifest.LoadBalancerDNS = lb.DNSName

	for _, svc := range targetOrder {
		tg, res, err := s.Cloud.EnsureTargetGroup(ctx, types.TargetGroup{
			Name:            r.names.TargetGroup(svc),
			Port:            int32(svc.Ports().Host),
			VPCID:           r.network.VPCID,
			HealthCheckPath: s.Config.HealthCheckPath,
		})
		if err != nil {
			return err
		}
		r.manifest.Record(res)
		r.targets[svc] = tg
	}
	return nil
}

func (s *Sequencer) listeners(ctx context.Context, r *run) error {
	for _, svc := range targetOrder {
		tg := r.targets[svc]
		_, res, err := s.Cloud.EnsureListener(ctx, types.Listener{
			LBARN:          r.lb.ARN,
			Port:           tg.Port,
			TargetGroupARN: tg.ARN,
		})
		if err != nil {
			return err
		}
		r.manifest.Record(res)
	}
	return nil
}

// service returns the step that provisions the launch template and
// scaling group of svc
func (s *Sequencer) service(svc types.Service) func(context.Context, *run) error {
	return func(ctx context.Context, r *run) error {
		script, err := s.bootScript(svc, r)
		if err != nil {
			return err
		}

		lt, err := s.Cloud.EnsureLaunchTemplate(ctx, types.Blueprint{
			Name:            r.names.LaunchTemplate(svc),
			Service:         svc,
			ImageID:         s.Config.ImageID,
			InstanceType:    s.Config.InstanceType,
			KeyName:         s.Config.KeyName,
			InstanceProfile: r.profile,
			SecurityGroupID: r.groups.ForTier(svc.Tier()),
			UserData:        script,
			Tags: map[string]string{
				"Name":    r.names.Container(svc),
				"Project": s.Config.Project,
			},
		})
		if err != nil {
			return err
		}
		r.manifest.Record(lt)

		var targets []string
		if tg, ok := r.targets[svc]; ok {
			targets = []string{tg.ARN}
		}

		asg, err := s.Cloud.EnsureAutoScalingGroup(ctx, types.ScalingGroup{
			Name:             r.names.ScalingGroup(svc),
			LaunchTemplateID: lt.ID,
			SubnetIDs:        r.network.SubnetIDs,
			TargetGroupARNs:  targets,
			MinSize:          s.Config.Scaling.MinSize,
			MaxSize:          s.Config.Scaling.MaxSize,
			DesiredCapacity:  s.Config.Scaling.DesiredCapacity,
		})
		if err != nil {
			return err
		}
		r.manifest.Record(asg)
		return nil
	}
}

func (s *Sequencer) bootScript(svc types.Service, r *run) (string, error) {
	script, err := bootscript.Render(svc, bootscript.Params{
		Project:      s.Config.Project,
		Region:       r.manifest.Region,
		Image:        s.Config.Image(svc),
		DatabaseTag:  r.names.DatabaseNode(),
		DatabaseName: s.Config.DatabaseName,
	})
	if err != nil {
		return "", err
	}
	return bootscript.Encode(script), nil
}

// publishOutcome sends the run result to the success or failure topic.
// Failures are logged and never change the result of the run.
func (s *Sequencer) publishOutcome(ctx context.Context, log zerolog.Logger, m *Manifest, runErr error) {
	topic := s.Config.Notify.SuccessTopic
	text := fmt.Sprintf("tierctl: %s provisioned in %s (%d resources, %d created). ALB: %s",
		m.Project, m.Region, len(m.Resources), len(m.Created()), m.LoadBalancerDNS)
	if runErr != nil {
		topic = s.Config.Notify.FailureTopic
		text = fmt.Sprintf("tierctl: provisioning %s failed: %v", m.Project, runErr)
	}

	body, err := json.Marshal(relay.Message{Text: text})
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode outcome message")
		return
	}

	arn, err := s.Cloud.EnsureTopic(ctx, topic)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to resolve outcome topic")
		return
	}

	if _, err := s.Cloud.Publish(ctx, arn, "tierctl "+m.Project, string(body)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to publish outcome")
		return
	}
	log.Info().Str("topic", topic).Msg("published outcome")
}
