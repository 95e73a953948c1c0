package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"

	"github.com/vietdv277/tierctl/internal/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     5,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      time.Second,
	}
}

func apiError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

func newTestClient() *Client {
	c, _ := newTestClientWith(newFakeEC2())
	return c
}

func newTestClientWith(ec2c *fakeEC2) (*Client, *fakeEC2) {
	return &Client{
		EC2:    ec2c,
		ASG:    newFakeASG(),
		ELBv2:  newFakeELB(),
		IAM:    newFakeIAM(),
		Lambda: newFakeLambda(),
		Retry:  fastPolicy(),
	}, ec2c
}

// fakeEC2 keeps security groups, launch templates and instances in memory
type fakeEC2 struct {
	EC2API

	vpcs    []ec2types.Vpc
	subnets []ec2types.Subnet
	groups  []*ec2types.SecurityGroup

	templates map[string]string

	instances []ec2types.Instance
	runErrs   []error

	describeGroupsErr error
	authorizeErr      error

	authorized      []ec2.AuthorizeSecurityGroupIngressInput
	templateCreates []*ec2.CreateLaunchTemplateInput
	runs            int
	nextID          int
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{templates: map[string]string{}}
}

func (f *fakeEC2) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func filterValue(filters []ec2types.Filter, name string) (string, bool) {
	for _, fl := range filters {
		if deref(fl.Name) == name && len(fl.Values) > 0 {
			return fl.Values[0], true
		}
	}
	return "", false
}

func (f *fakeEC2) DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	return &ec2.DescribeVpcsOutput{Vpcs: f.vpcs}, nil
}

func (f *fakeEC2) DescribeSubnets(ctx context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	return &ec2.DescribeSubnetsOutput{Subnets: f.subnets}, nil
}

func (f *fakeEC2) DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if f.describeGroupsErr != nil {
		return nil, f.describeGroupsErr
	}

	out := &ec2.DescribeSecurityGroupsOutput{}
	name, byName := filterValue(in.Filters, "group-name")
	for _, g := range f.groups {
		switch {
		case len(in.GroupIds) > 0:
			for _, id := range in.GroupIds {
				if deref(g.GroupId) == id {
					out.SecurityGroups = append(out.SecurityGroups, *g)
				}
			}
		case byName && deref(g.GroupName) == name:
			out.SecurityGroups = append(out.SecurityGroups, *g)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateSecurityGroup(ctx context.Context, in *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	id := f.id("sg")
	f.groups = append(f.groups, &ec2types.SecurityGroup{
		GroupId:   aws.String(id),
		GroupName: in.GroupName,
		VpcId:     in.VpcId,
	})
	return &ec2.CreateSecurityGroupOutput{GroupId: aws.String(id)}, nil
}

func (f *fakeEC2) AuthorizeSecurityGroupIngress(ctx context.Context, in *ec2.AuthorizeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	f.authorized = append(f.authorized, *in)
	if f.authorizeErr != nil {
		return nil, f.authorizeErr
	}

	for _, g := range f.groups {
		if deref(g.GroupId) == deref(in.GroupId) {
			g.IpPermissions = append(g.IpPermissions, in.IpPermissions...)
		}
	}
	return &ec2.AuthorizeSecurityGroupIngressOutput{
		SecurityGroupRules: []ec2types.SecurityGroupRule{{SecurityGroupRuleId: aws.String(f.id("sgr"))}},
	}, nil
}

func (f *fakeEC2) DescribeLaunchTemplates(ctx context.Context, in *ec2.DescribeLaunchTemplatesInput, _ ...func(*ec2.Options)) (*ec2.DescribeLaunchTemplatesOutput, error) {
	out := &ec2.DescribeLaunchTemplatesOutput{}
	for _, name := range in.LaunchTemplateNames {
		id, ok := f.templates[name]
		if !ok {
			return nil, apiError(codeLaunchTemplateMissing, "At least one of the launch templates specified in the request does not exist.")
		}
		out.LaunchTemplates = append(out.LaunchTemplates, ec2types.LaunchTemplate{
			LaunchTemplateId:   aws.String(id),
			LaunchTemplateName: aws.String(name),
		})
	}
	return out, nil
}

func (f *fakeEC2) CreateLaunchTemplate(ctx context.Context, in *ec2.CreateLaunchTemplateInput, _ ...func(*ec2.Options)) (*ec2.CreateLaunchTemplateOutput, error) {
	f.templateCreates = append(f.templateCreates, in)
	id := f.id("lt")
	f.templates[deref(in.LaunchTemplateName)] = id
	return &ec2.CreateLaunchTemplateOutput{
		LaunchTemplate: &ec2types.LaunchTemplate{LaunchTemplateId: aws.String(id), LaunchTemplateName: in.LaunchTemplateName},
	}, nil
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	name, _ := filterValue(in.Filters, "tag:Name")
	var matched []ec2types.Instance
	for _, inst := range f.instances {
		tag := nameTag(inst.Tags)
		if tag == name || (strings.HasSuffix(name, "*") && strings.HasPrefix(tag, strings.TrimSuffix(name, "*"))) {
			matched = append(matched, inst)
		}
	}

	out := &ec2.DescribeInstancesOutput{}
	if len(matched) > 0 {
		out.Reservations = []ec2types.Reservation{{Instances: matched}}
	}
	return out, nil
}

func (f *fakeEC2) RunInstances(ctx context.Context, in *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.runs++
	if len(f.runErrs) > 0 {
		err := f.runErrs[0]
		f.runErrs = f.runErrs[1:]
		return nil, err
	}

	inst := ec2types.Instance{
		InstanceId: aws.String(f.id("i")),
		State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNamePending},
		Tags:       in.TagSpecifications[0].Tags,
	}
	f.instances = append(f.instances, inst)
	return &ec2.RunInstancesOutput{Instances: []ec2types.Instance{inst}}, nil
}

// fakeIAM reports a profile as missing for the first hiddenFor lookups
type fakeIAM struct {
	IAMAPI

	roles    map[string]string
	profiles map[string]bool
	attached map[string][]string

	hiddenFor    int
	addRoleErrs  []error
	profileReads int
	addRoleCalls int
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{roles: map[string]string{}, profiles: map[string]bool{}, attached: map[string][]string{}}
}

func (f *fakeIAM) CreateRole(ctx context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	name := deref(in.RoleName)
	if _, ok := f.roles[name]; ok {
		return nil, &iamtypes.EntityAlreadyExistsException{Message: aws.String("Role exists")}
	}
	arn := "arn:aws:iam::123456789012:role/" + name
	f.roles[name] = arn
	return &iam.CreateRoleOutput{Role: &iamtypes.Role{RoleName: in.RoleName, Arn: aws.String(arn)}}, nil
}

func (f *fakeIAM) GetRole(ctx context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	arn, ok := f.roles[deref(in.RoleName)]
	if !ok {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no role")}
	}
	return &iam.GetRoleOutput{Role: &iamtypes.Role{RoleName: in.RoleName, Arn: aws.String(arn)}}, nil
}

func (f *fakeIAM) AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	role := deref(in.RoleName)
	f.attached[role] = append(f.attached[role], deref(in.PolicyArn))
	return &iam.AttachRolePolicyOutput{}, nil
}

func (f *fakeIAM) CreateInstanceProfile(ctx context.Context, in *iam.CreateInstanceProfileInput, _ ...func(*iam.Options)) (*iam.CreateInstanceProfileOutput, error) {
	name := deref(in.InstanceProfileName)
	if f.profiles[name] {
		return nil, &iamtypes.EntityAlreadyExistsException{Message: aws.String("Profile exists")}
	}
	f.profiles[name] = true
	return &iam.CreateInstanceProfileOutput{InstanceProfile: &iamtypes.InstanceProfile{InstanceProfileName: in.InstanceProfileName}}, nil
}

func (f *fakeIAM) AddRoleToInstanceProfile(ctx context.Context, in *iam.AddRoleToInstanceProfileInput, _ ...func(*iam.Options)) (*iam.AddRoleToInstanceProfileOutput, error) {
	f.addRoleCalls++
	if len(f.addRoleErrs) > 0 {
		err := f.addRoleErrs[0]
		f.addRoleErrs = f.addRoleErrs[1:]
		return nil, err
	}
	return &iam.AddRoleToInstanceProfileOutput{}, nil
}

func (f *fakeIAM) GetInstanceProfile(ctx context.Context, in *iam.GetInstanceProfileInput, _ ...func(*iam.Options)) (*iam.GetInstanceProfileOutput, error) {
	f.profileReads++
	if f.profileReads <= f.hiddenFor || !f.profiles[deref(in.InstanceProfileName)] {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("not yet")}
	}
	return &iam.GetInstanceProfileOutput{InstanceProfile: &iamtypes.InstanceProfile{InstanceProfileName: in.InstanceProfileName}}, nil
}

// fakeELB keeps load balancers, target groups and listeners in memory
type fakeELB struct {
	ELBv2API

	lbs       map[string]elbv2types.LoadBalancer
	tgs       map[string]elbv2types.TargetGroup
	listeners []elbv2types.Listener

	describeLBErr   error
	listenerCreates int
	nextID          int
}

func newFakeELB() *fakeELB {
	return &fakeELB{lbs: map[string]elbv2types.LoadBalancer{}, tgs: map[string]elbv2types.TargetGroup{}}
}

func (f *fakeELB) DescribeLoadBalancers(ctx context.Context, in *elbv2.DescribeLoadBalancersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
	if f.describeLBErr != nil {
		return nil, f.describeLBErr
	}
	out := &elbv2.DescribeLoadBalancersOutput{}
	for _, name := range in.Names {
		lb, ok := f.lbs[name]
		if !ok {
			return nil, &elbv2types.LoadBalancerNotFoundException{Message: aws.String("One or more load balancers not found")}
		}
		out.LoadBalancers = append(out.LoadBalancers, lb)
	}
	return out, nil
}

func (f *fakeELB) CreateLoadBalancer(ctx context.Context, in *elbv2.CreateLoadBalancerInput, _ ...func(*elbv2.Options)) (*elbv2.CreateLoadBalancerOutput, error) {
	f.nextID++
	lb := elbv2types.LoadBalancer{
		LoadBalancerName: in.Name,
		LoadBalancerArn:  aws.String(fmt.Sprintf("arn:lb/%s/%d", deref(in.Name), f.nextID)),
		DNSName:          aws.String(deref(in.Name) + ".elb.amazonaws.com"),
		SecurityGroups:   in.SecurityGroups,
		Scheme:           in.Scheme,
	}
	f.lbs[deref(in.Name)] = lb
	return &elbv2.CreateLoadBalancerOutput{LoadBalancers: []elbv2types.LoadBalancer{lb}}, nil
}

func (f *fakeELB) DescribeTargetGroups(ctx context.Context, in *elbv2.DescribeTargetGroupsInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
	out := &elbv2.DescribeTargetGroupsOutput{}
	for _, name := range in.Names {
		tg, ok := f.tgs[name]
		if !ok {
			return nil, &elbv2types.TargetGroupNotFoundException{Message: aws.String("One or more target groups not found")}
		}
		out.TargetGroups = append(out.TargetGroups, tg)
	}
	return out, nil
}

func (f *fakeELB) CreateTargetGroup(ctx context.Context, in *elbv2.CreateTargetGroupInput, _ ...func(*elbv2.Options)) (*elbv2.CreateTargetGroupOutput, error) {
	f.nextID++
	tg := elbv2types.TargetGroup{
		TargetGroupName: in.Name,
		TargetGroupArn:  aws.String(fmt.Sprintf("arn:tg/%s/%d", deref(in.Name), f.nextID)),
		Port:            in.Port,
		VpcId:           in.VpcId,
		HealthCheckPath: in.HealthCheckPath,
		HealthCheckPort: in.HealthCheckPort,
	}
	f.tgs[deref(in.Name)] = tg
	return &elbv2.CreateTargetGroupOutput{TargetGroups: []elbv2types.TargetGroup{tg}}, nil
}

func (f *fakeELB) DescribeListeners(ctx context.Context, in *elbv2.DescribeListenersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error) {
	var out []elbv2types.Listener
	for _, l := range f.listeners {
		if deref(l.LoadBalancerArn) == deref(in.LoadBalancerArn) {
			out = append(out, l)
		}
	}
	return &elbv2.DescribeListenersOutput{Listeners: out}, nil
}

func (f *fakeELB) CreateListener(ctx context.Context, in *elbv2.CreateListenerInput, _ ...func(*elbv2.Options)) (*elbv2.CreateListenerOutput, error) {
	f.listenerCreates++
	f.nextID++
	l := elbv2types.Listener{
		ListenerArn:     aws.String(fmt.Sprintf("arn:listener/%d", f.nextID)),
		LoadBalancerArn: in.LoadBalancerArn,
		Port:            in.Port,
		Protocol:        in.Protocol,
		DefaultActions:  in.DefaultActions,
	}
	f.listeners = append(f.listeners, l)
	return &elbv2.CreateListenerOutput{Listeners: []elbv2types.Listener{l}}, nil
}

// fakeASG keeps scaling groups in memory
type fakeASG struct {
	AutoScalingAPI

	groups     map[string]*autoscaling.CreateAutoScalingGroupInput
	createErrs []error
	creates    int
}

func newFakeASG() *fakeASG {
	return &fakeASG{groups: map[string]*autoscaling.CreateAutoScalingGroupInput{}}
}

func (f *fakeASG) DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	out := &autoscaling.DescribeAutoScalingGroupsOutput{}
	for _, name := range in.AutoScalingGroupNames {
		g, ok := f.groups[name]
		if !ok {
			continue
		}
		out.AutoScalingGroups = append(out.AutoScalingGroups, asgtypes.AutoScalingGroup{
			AutoScalingGroupName: g.AutoScalingGroupName,
			MinSize:              g.MinSize,
			MaxSize:              g.MaxSize,
			DesiredCapacity:      g.DesiredCapacity,
			LaunchTemplate:       g.LaunchTemplate,
			VPCZoneIdentifier:    g.VPCZoneIdentifier,
			TargetGroupARNs:      g.TargetGroupARNs,
		})
	}
	return out, nil
}

func (f *fakeASG) CreateAutoScalingGroup(ctx context.Context, in *autoscaling.CreateAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.CreateAutoScalingGroupOutput, error) {
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return nil, err
	}
	f.groups[deref(in.AutoScalingGroupName)] = in
	return &autoscaling.CreateAutoScalingGroupOutput{}, nil
}

// fakeLambda records the deployment calls it receives, in order
type fakeLambda struct {
	LambdaAPI

	functions  map[string]string
	createErrs []error
	configErrs []error
	calls      []string
	lastConfig *lambda.UpdateFunctionConfigurationInput
}

func newFakeLambda() *fakeLambda {
	return &fakeLambda{functions: map[string]string{}}
}

func (f *fakeLambda) CreateFunction(ctx context.Context, in *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	f.calls = append(f.calls, "create")
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return nil, err
	}
	name := deref(in.FunctionName)
	if _, ok := f.functions[name]; ok {
		return nil, &lambdatypes.ResourceConflictException{Message: aws.String("Function already exist: " + name)}
	}
	arn := "arn:aws:lambda:us-west-2:123456789012:function:" + name
	f.functions[name] = arn
	return &lambda.CreateFunctionOutput{FunctionArn: aws.String(arn)}, nil
}

func (f *fakeLambda) UpdateFunctionCode(ctx context.Context, in *lambda.UpdateFunctionCodeInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	f.calls = append(f.calls, "update-code")
	return &lambda.UpdateFunctionCodeOutput{FunctionArn: aws.String(f.functions[deref(in.FunctionName)])}, nil
}

func (f *fakeLambda) UpdateFunctionConfiguration(ctx context.Context, in *lambda.UpdateFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error) {
	f.calls = append(f.calls, "update-config")
	if len(f.configErrs) > 0 {
		err := f.configErrs[0]
		f.configErrs = f.configErrs[1:]
		return nil, err
	}
	f.lastConfig = in
	return &lambda.UpdateFunctionConfigurationOutput{}, nil
}

func (f *fakeLambda) AddPermission(ctx context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.calls = append(f.calls, "add-permission")
	return &lambda.AddPermissionOutput{}, nil
}
