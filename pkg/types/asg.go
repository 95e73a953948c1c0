package types

// ScalingGroup describes an Auto Scaling Group bound to a launch template
type ScalingGroup struct {
	Name             string
	LaunchTemplateID string
	SubnetIDs        []string
	TargetGroupARNs  []string
	MinSize          int32
	MaxSize          int32
	DesiredCapacity  int32
}
