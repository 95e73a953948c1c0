package types

// Function describes a Lambda function deployment
type Function struct {
	Name        string
	RoleARN     string
	Runtime     string
	Handler     string
	Code        []byte // zip archive
	MemoryMB    int32
	TimeoutSec  int32
	Environment map[string]string
	Layers      []string
	Description string
}
