package types

import "time"

// Instance represents an EC2 instance
type Instance struct {
	ID         string
	Name       string
	PrivateIP  string
	PublicIP   string
	State      string
	Type       string
	AZ         string
	ASG        string
	LaunchTime time.Time
}

// Blueprint describes a launch template for one service
type Blueprint struct {
	Name            string
	Service         Service
	ImageID         string
	InstanceType    string
	KeyName         string
	InstanceProfile string
	SecurityGroupID string
	UserData        string // base64 encoded
	Tags            map[string]string
}

// DatabaseNode describes the standalone database instance
type DatabaseNode struct {
	Name            string // Name tag, discovered by backends at boot
	ImageID         string
	InstanceType    string
	KeyName         string
	InstanceProfile string
	SecurityGroupID string
	SubnetID        string
	UserData        string // base64 encoded
}
