package types

// LoadBalancer represents an Application Load Balancer
type LoadBalancer struct {
	Name            string
	ARN             string
	DNSName         string
	SubnetIDs       []string
	SecurityGroupID string
}

// TargetGroup represents an ELBv2 target group
type TargetGroup struct {
	Name            string
	ARN             string
	Port            int32
	VPCID           string
	HealthCheckPath string
}

// Listener represents a load balancer listener forwarding to one target group
type Listener struct {
	ARN            string
	LBARN          string
	Port           int32
	TargetGroupARN string
}
