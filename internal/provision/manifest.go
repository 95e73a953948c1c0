package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vietdv277/tierctl/pkg/types"
)

// Manifest records every resource a run resolved, in resolution order
type Manifest struct {
	RunID           string           `yaml:"run_id"`
	Project         string           `yaml:"project"`
	Account         string           `yaml:"account,omitempty"`
	Region          string           `yaml:"region,omitempty"`
	StartedAt       time.Time        `yaml:"started_at"`
	FinishedAt      time.Time        `yaml:"finished_at,omitempty"`
	LoadBalancerDNS string           `yaml:"load_balancer_dns,omitempty"`
	Resources       []types.Resource `yaml:"resources"`
	Error           string           `yaml:"error,omitempty"`
	RolledBack      bool             `yaml:"rolled_back,omitempty"`
}

// Record appends resources to the manifest. Created resources are stamped
// with the manifest's run id.
func (m *Manifest) Record(rs ...types.Resource) {
	for _, r := range rs {
		if r.Created && r.CreatedBy == "" {
			r.CreatedBy = m.RunID
		}
		m.Resources = append(m.Resources, r)
	}
}

// CreatedIn returns the resources created by the given run
func (m *Manifest) CreatedIn(runID string) []types.Resource {
	var out []types.Resource
	for _, r := range m.Resources {
		if r.Created && r.CreatedBy == runID {
			out = append(out, r)
		}
	}
	return out
}

// Inherit carries forward what earlier runs created. A resource this run
// reused keeps the earlier run's created mark, and created resources this
// run never reached are appended, so cleanup still sees all of them.
func (m *Manifest) Inherit(prev *Manifest) {
	if prev == nil {
		return
	}

	seen := make(map[string]int, len(m.Resources))
	for i, r := range m.Resources {
		seen[key(r)] = i
	}

	for _, r := range prev.Created() {
		i, ok := seen[key(r)]
		if !ok {
			m.Resources = append(m.Resources, r)
			continue
		}
		if !m.Resources[i].Created {
			m.Resources[i].Created = true
			m.Resources[i].CreatedBy = r.CreatedBy
		}
	}
}

// Created returns the resources tierctl created in this or an earlier run,
// in creation order
func (m *Manifest) Created() []types.Resource {
	var out []types.Resource
	for _, r := range m.Resources {
		if r.Created {
			out = append(out, r)
		}
	}
	return out
}

// Remove drops the given resources from the manifest
func (m *Manifest) Remove(gone []types.Resource) {
	if len(gone) == 0 {
		return
	}
	drop := make(map[string]bool, len(gone))
	for _, r := range gone {
		drop[key(r)] = true
	}

	kept := m.Resources[:0]
	for _, r := range m.Resources {
		if !drop[key(r)] {
			kept = append(kept, r)
		}
	}
	m.Resources = kept
}

func key(r types.Resource) string {
	return string(r.Kind) + "/" + r.Name + "/" + r.ID
}

// SaveManifest writes the manifest to path as YAML
func SaveManifest(path string, m *Manifest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest written by SaveManifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
