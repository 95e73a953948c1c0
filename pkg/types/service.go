package types

import "strings"

// Service identifies one logical workload of the stack
type Service string

const (
	ServiceFrontend Service = "frontend"
	ServiceBackend1 Service = "backend1"
	ServiceBackend2 Service = "backend2"
	ServiceMongoDB  Service = "mongodb"
)

// Services lists every service in provisioning order for scaled tiers.
// The database node is not scaled and is handled separately.
var Services = []Service{ServiceBackend1, ServiceBackend2, ServiceFrontend}

// PortMapping is a host:container port pair for docker run -p
type PortMapping struct {
	Host      int
	Container int
}

var servicePorts = map[Service]PortMapping{
	ServiceFrontend: {Host: 80, Container: 3000},
	ServiceBackend1: {Host: 3001, Container: 3001},
	ServiceBackend2: {Host: 3002, Container: 3002},
	ServiceMongoDB:  {Host: 27017, Container: 27017},
}

var serviceTokens = map[Service]string{
	ServiceFrontend: "fe",
	ServiceBackend1: "be1",
	ServiceBackend2: "be2",
	ServiceMongoDB:  "mongo",
}

// ParseService converts a service name to a Service
func ParseService(s string) (Service, bool) {
	svc := Service(strings.ToLower(strings.TrimSpace(s)))
	_, ok := servicePorts[svc]
	return svc, ok
}

// Ports returns the host and container ports the service listens on
func (s Service) Ports() PortMapping {
	return servicePorts[s]
}

// IsBackend reports whether the service needs the database address
func (s Service) IsBackend() bool {
	return s == ServiceBackend1 || s == ServiceBackend2
}

// Token returns the short name used in resource names (fe, be1, be2, mongo)
func (s Service) Token() string {
	return serviceTokens[s]
}

// Tier returns the network tier the service runs in
func (s Service) Tier() Tier {
	switch s {
	case ServiceFrontend:
		return TierFrontend
	case ServiceBackend1, ServiceBackend2:
		return TierBackend
	default:
		return TierDatabase
	}
}

func (s Service) String() string {
	return string(s)
}

// ServiceFromToken maps a short name token to a Service.
// Unknown tokens map to ServiceMongoDB.
func ServiceFromToken(token string) Service {
	switch token {
	case "fe":
		return ServiceFrontend
	case "be1":
		return ServiceBackend1
	case "be2":
		return ServiceBackend2
	default:
		return ServiceMongoDB
	}
}

// ServiceFromTemplateName derives the service from a legacy launch template
// name of the form <a>-<b>-<c>-<token>-lt, reading the fourth dash-separated
// segment. Names with fewer segments map to ServiceMongoDB.
//
// Only use this for names produced outside tierctl. Provisioning passes the
// Service explicitly.
func ServiceFromTemplateName(name string) Service {
	parts := strings.Split(name, "-")
	if len(parts) < 4 {
		return ServiceMongoDB
	}
	return ServiceFromToken(parts[3])
}

// Tier is a network isolation boundary with its own security group
type Tier string

const (
	TierFrontend Tier = "fe"
	TierBackend  Tier = "be"
	TierDatabase Tier = "mongo"
)

// Tiers lists the tiers in the order their rules must be applied.
// Backend rules reference the frontend group, database rules the backend group.
var Tiers = []Tier{TierFrontend, TierBackend, TierDatabase}

// Description returns the security group description for the tier
func (t Tier) Description() string {
	switch t {
	case TierFrontend:
		return "Frontend SG"
	case TierBackend:
		return "Backend SG"
	default:
		return "MongoDB SG"
	}
}
