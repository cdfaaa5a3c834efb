package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUnregisteredMetrics_NoDefaultRegistration(t *testing.T) {
	// Repeated construction must not panic with duplicate registration.
	first := NewUnregisteredMetrics()
	second := NewUnregisteredMetrics()

	assert.NotNil(t, first.Lookups)
	assert.NotNil(t, second.Lookups)
}

func TestNewMetricsForTesting_NoDefaultRegistration(t *testing.T) {
	first := NewMetricsForTesting()
	second := NewMetricsForTesting()

	assert.NotNil(t, first.UpstreamRequests)
	assert.NotNil(t, second.UpstreamRequests)
}
