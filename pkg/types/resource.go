package types

// ResourceKind names the type of a provisioned cloud resource
type ResourceKind string

const (
	KindSecurityGroup   ResourceKind = "security-group"
	KindIngressRule     ResourceKind = "ingress-rule"
	KindRole            ResourceKind = "iam-role"
	KindRolePolicy      ResourceKind = "iam-role-policy"
	KindInstanceProfile ResourceKind = "instance-profile"
	KindLaunchTemplate  ResourceKind = "launch-template"
	KindInstance        ResourceKind = "instance"
	KindLoadBalancer    ResourceKind = "load-balancer"
	KindTargetGroup     ResourceKind = "target-group"
	KindListener        ResourceKind = "listener"
	KindScalingGroup    ResourceKind = "autoscaling-group"
	KindFunction        ResourceKind = "lambda-function"
	KindScheduleRule    ResourceKind = "schedule-rule"
	KindTopic           ResourceKind = "sns-topic"
)

// Resource is one entry of a provisioning manifest
type Resource struct {
	Kind      ResourceKind      `yaml:"kind"`
	Name      string            `yaml:"name"`
	ID        string            `yaml:"id"`
	Created   bool              `yaml:"created"`
	CreatedBy string            `yaml:"created_by,omitempty"` // run id that created it
	Attrs     map[string]string `yaml:"attrs,omitempty"`      // extra ids needed to delete
}
