package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceFromTemplateName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected Service
	}{
		{name: "frontend", template: "mernapp-rbrk-v1-fe-lt", expected: ServiceFrontend},
		{name: "backend1", template: "mernapp-rbrk-v1-be1-lt", expected: ServiceBackend1},
		{name: "backend2", template: "mernapp-rbrk-v1-be2-lt", expected: ServiceBackend2},
		{name: "other suffix", template: "mernapp-rbrk-v1-mongo-lt", expected: ServiceMongoDB},
		{name: "unknown token", template: "mernapp-rbrk-v1-cache-lt", expected: ServiceMongoDB},
		{name: "too few segments", template: "shop-fe-lt", expected: ServiceMongoDB},
		{name: "no dashes", template: "frontend", expected: ServiceMongoDB},
		{name: "empty", template: "", expected: ServiceMongoDB},
		{name: "extra segments", template: "a-b-c-be2-x-y-lt", expected: ServiceBackend2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ServiceFromTemplateName(tt.template))
		})
	}
}

func TestServicePorts(t *testing.T) {
	assert.Equal(t, PortMapping{Host: 80, Container: 3000}, ServiceFrontend.Ports())
	assert.Equal(t, PortMapping{Host: 3001, Container: 3001}, ServiceBackend1.Ports())
	assert.Equal(t, PortMapping{Host: 3002, Container: 3002}, ServiceBackend2.Ports())
	assert.Equal(t, PortMapping{Host: 27017, Container: 27017}, ServiceMongoDB.Ports())
}

func TestServiceTier(t *testing.T) {
	assert.Equal(t, TierFrontend, ServiceFrontend.Tier())
	assert.Equal(t, TierBackend, ServiceBackend1.Tier())
	assert.Equal(t, TierBackend, ServiceBackend2.Tier())
	assert.Equal(t, TierDatabase, ServiceMongoDB.Tier())

	assert.True(t, ServiceBackend1.IsBackend())
	assert.False(t, ServiceFrontend.IsBackend())
	assert.False(t, ServiceMongoDB.IsBackend())
}

func TestParseService(t *testing.T) {
	svc, ok := ParseService(" Backend2 ")
	assert.True(t, ok)
	assert.Equal(t, ServiceBackend2, svc)

	_, ok = ParseService("cache")
	assert.False(t, ok)
}
