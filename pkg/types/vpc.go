package types

// Network is the VPC the stack is deployed into
type Network struct {
	VPCID     string
	CIDR      string
	SubnetIDs []string
}

// SecurityGroups holds the group id of every tier
type SecurityGroups struct {
	Frontend string
	Backend  string
	Database string
}

// ForTier returns the group id of the given tier
func (s SecurityGroups) ForTier(t Tier) string {
	switch t {
	case TierFrontend:
		return s.Frontend
	case TierBackend:
		return s.Backend
	default:
		return s.Database
	}
}

// IngressRule is a single tcp ingress permission. Exactly one of CIDR or
// SourceGroupID is set.
type IngressRule struct {
	FromPort      int32
	ToPort        int32
	CIDR          string
	SourceGroupID string
}
