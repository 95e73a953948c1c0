package provision

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/tierctl/pkg/types"
)

func TestManifestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "shop.yaml")
	m := &Manifest{
		RunID:     "run-1",
		Project:   "shop",
		StartedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Resources: []types.Resource{
			{Kind: types.KindSecurityGroup, Name: "shop-fe-sg", ID: "sg-1", Created: true},
			{Kind: types.KindIngressRule, Name: "tcp/80 from 0.0.0.0/0", ID: "sgr-1", Created: true, Attrs: map[string]string{"group_id": "sg-1"}},
		},
	}

	require.NoError(t, SaveManifest(path, m))

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.True(t, m.StartedAt.Equal(loaded.StartedAt))
	assert.Equal(t, m.Resources, loaded.Resources)
}

func TestManifestRemove(t *testing.T) {
	a := types.Resource{Kind: types.KindRole, Name: "a", ID: "1", Created: true}
	b := types.Resource{Kind: types.KindRole, Name: "b", ID: "2"}
	c := types.Resource{Kind: types.KindRole, Name: "c", ID: "3", Created: true}
	m := &Manifest{Resources: []types.Resource{a, b, c}}

	assert.Equal(t, []types.Resource{a, c}, m.Created())

	m.Remove([]types.Resource{c, a})
	assert.Equal(t, []types.Resource{b}, m.Resources)
}

func TestManifestInherit(t *testing.T) {
	sg := types.Resource{Kind: types.KindSecurityGroup, Name: "shop-fe-sg", ID: "sg-1", Created: true, CreatedBy: "run-1"}
	role := types.Resource{Kind: types.KindRole, Name: "shop-ec2-role", ID: "role-1", Created: true, CreatedBy: "run-1"}
	reused := types.Resource{Kind: types.KindRole, Name: "ops", ID: "role-0"}
	prev := &Manifest{RunID: "run-1", Resources: []types.Resource{sg, reused, role}}

	m := &Manifest{RunID: "run-2"}
	m.Record(
		types.Resource{Kind: sg.Kind, Name: sg.Name, ID: sg.ID},
		types.Resource{Kind: types.KindInstance, Name: "shop-mongo", ID: "i-1", Created: true},
	)
	m.Inherit(prev)

	require.Len(t, m.Resources, 3)
	assert.Equal(t, sg, m.Resources[0])
	assert.Equal(t, "run-2", m.Resources[1].CreatedBy)
	assert.Equal(t, role, m.Resources[2])
	assert.Len(t, m.CreatedIn("run-1"), 2)
	assert.Len(t, m.CreatedIn("run-2"), 1)

	m.Inherit(nil)
	assert.Len(t, m.Resources, 3)
}
