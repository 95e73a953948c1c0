package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/vietdv277/tierctl/internal/retry"
	"github.com/vietdv277/tierctl/pkg/types"
)

// Managed policies attached to execution roles
const (
	PolicyECRReadOnly         = "arn:aws:iam::aws:policy/AmazonEC2ContainerRegistryReadOnly"
	PolicyS3FullAccess        = "arn:aws:iam::aws:policy/AmazonS3FullAccess"
	PolicyLambdaBasicExecRole = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
	PolicySSMReadOnly         = "arn:aws:iam::aws:policy/AmazonSSMReadOnlyAccess"
)

// RoleSpec describes an execution role assumable by one AWS service
type RoleSpec struct {
	Name       string
	Service    string // e.g. ec2.amazonaws.com
	PolicyARNs []string
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
	Action    string            `json:"Action"`
}

func trustPolicy(service string) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string]string{"Service": service},
			Action:    "sts:AssumeRole",
		}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EnsureRole creates the role, or fetches it when it already exists, and
// attaches the managed policies. It returns the role ARN.
func (c *Client) EnsureRole(ctx context.Context, spec RoleSpec) (string, []types.Resource, error) {
	doc, err := trustPolicy(spec.Service)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render trust policy: %w", err)
	}

	role := types.Resource{Kind: types.KindRole, Name: spec.Name}

	created, err := c.IAM.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(spec.Name),
		AssumeRolePolicyDocument: aws.String(doc),
	})
	switch {
	case err == nil:
		role.ID = deref(created.Role.Arn)
		role.Created = true
		c.log.Info().Str("role", spec.Name).Msg("created IAM role")
	case isA[*iamtypes.EntityAlreadyExistsException](err):
		existing, gerr := c.IAM.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(spec.Name)})
		if gerr != nil {
			return "", nil, fmt.Errorf("failed to get IAM role %s: %w", spec.Name, gerr)
		}
		role.ID = deref(existing.Role.Arn)
		c.log.Info().Str("role", spec.Name).Msg("found IAM role")
	default:
		return "", nil, fmt.Errorf("failed to create IAM role %s: %w", spec.Name, err)
	}

	resources := []types.Resource{role}
	for _, arn := range spec.PolicyARNs {
		_, err := c.IAM.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(spec.Name),
			PolicyArn: aws.String(arn),
		})
		if err != nil {
			return role.ID, resources, fmt.Errorf("failed to attach %s to %s: %w", arn, spec.Name, err)
		}
		resources = append(resources, types.Resource{
			Kind:    types.KindRolePolicy,
			Name:    arn,
			ID:      arn,
			Created: role.Created,
			Attrs:   map[string]string{"role": spec.Name},
		})
	}

	return role.ID, resources, nil
}

// InstanceProfileName returns the profile name EC2 instances of a project use
func InstanceProfileName(project string) string {
	return project + "-ec2-profile"
}

// EnsureInstanceProfile creates the EC2 role and instance profile of a
// project, binds them, and returns once the profile is readable. Every wait
// is bounded by the client's retry policy.
func (c *Client) EnsureInstanceProfile(ctx context.Context, project string) (string, []types.Resource, error) {
	roleName := project + "-ec2-role"
	profileName := InstanceProfileName(project)

	_, resources, err := c.EnsureRole(ctx, RoleSpec{
		Name:       roleName,
		Service:    "ec2.amazonaws.com",
		PolicyARNs: []string{PolicyECRReadOnly, PolicyS3FullAccess},
	})
	if err != nil {
		return "", resources, err
	}

	profile := types.Resource{
		Kind:  types.KindInstanceProfile,
		Name:  profileName,
		ID:    profileName,
		Attrs: map[string]string{"role": roleName},
	}

	_, err = c.IAM.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
	})
	switch {
	case err == nil:
		profile.Created = true
		c.log.Info().Str("profile", profileName).Msg("created instance profile")
	case isA[*iamtypes.EntityAlreadyExistsException](err):
		c.log.Info().Str("profile", profileName).Msg("found instance profile")
	default:
		return "", resources, fmt.Errorf("failed to create instance profile %s: %w", profileName, err)
	}
	resources = append(resources, profile)

	err = c.wait(ctx, "add role to instance profile", func(ctx context.Context) error {
		_, err := c.IAM.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
			InstanceProfileName: aws.String(profileName),
			RoleName:            aws.String(roleName),
		})
		switch {
		case err == nil:
			return nil
		case isA[*iamtypes.LimitExceededException](err):
			// A profile holds one role; it is already attached
			return nil
		case isA[*iamtypes.NoSuchEntityException](err), isA[*iamtypes.ServiceFailureException](err):
			return err
		default:
			return retry.Stop(err)
		}
	})
	if err != nil {
		return "", resources, fmt.Errorf("failed to attach role to instance profile %s: %w", profileName, err)
	}

	if err := c.WaitInstanceProfile(ctx, profileName); err != nil {
		return "", resources, err
	}

	return profileName, resources, nil
}

// WaitInstanceProfile blocks until GetInstanceProfile finds the profile
func (c *Client) WaitInstanceProfile(ctx context.Context, name string) error {
	err := c.wait(ctx, "wait for instance profile", func(ctx context.Context) error {
		_, err := c.IAM.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{
			InstanceProfileName: aws.String(name),
		})
		if err != nil && !isA[*iamtypes.NoSuchEntityException](err) {
			return retry.Stop(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("instance profile %s is not visible: %w", name, err)
	}

	c.log.Info().Str("profile", name).Msg("instance profile is visible")
	return nil
}
