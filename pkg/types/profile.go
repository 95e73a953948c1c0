package types

// ProfileSource names the shared file a profile was read from
type ProfileSource string

const (
	ProfileSourceCredentials ProfileSource = "credentials"
	ProfileSourceConfig      ProfileSource = "config"
)

// AWSProfile is a named profile from the shared credentials or config file
type AWSProfile struct {
	Name   string
	Region string // set only by the config file
	Source ProfileSource
}
