// Package bootscript renders the shell script instances run at first boot.
// The script installs docker and the AWS CLI, logs in to the account's ECR
// registry and starts the service container.
package bootscript

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"text/template"

	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

//go:embed userdata.sh.tmpl
var userDataTemplate string

var tmpl = template.Must(template.New("userdata").Parse(userDataTemplate))

// Params are the deployment values baked into a script
type Params struct {
	Project      string
	Region       string
	Image        string
	DatabaseTag  string // Name tag of the database instance
	DatabaseName string
}

type templateData struct {
	Params
	Container     string
	HostPort      int
	ContainerPort int
	Backend       bool
}

// Render returns the boot script for service. Backend scripts look up the
// database address when the instance boots and pass it as MONGO_URI.
func Render(service types.Service, p Params) (string, error) {
	if _, ok := types.ParseService(service.String()); !ok {
		return "", fmt.Errorf("unknown service %q: %w", service, provider.ErrInvalidArgument)
	}
	if p.Image == "" {
		return "", fmt.Errorf("no image for service %s: %w", service, provider.ErrInvalidArgument)
	}
	if service.IsBackend() && p.DatabaseTag == "" {
		return "", fmt.Errorf("backend %s needs the database tag: %w", service, provider.ErrInvalidArgument)
	}

	ports := service.Ports()
	data := templateData{
		Params:        p,
		Container:     p.Project + "-" + service.String(),
		HostPort:      ports.Host,
		ContainerPort: ports.Container,
		Backend:       service.IsBackend(),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render boot script for %s: %w", service, err)
	}
	return buf.String(), nil
}

// Encode returns the script base64 encoded, as launch templates expect
func Encode(script string) string {
	return base64.StdEncoding.EncodeToString([]byte(script))
}
