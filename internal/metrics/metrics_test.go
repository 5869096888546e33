package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors_Record(t *testing.T) {
	t.Parallel()

	c := New(prometheus.NewRegistry())

	c.CacheLookup("version_jar", true)
	c.CacheLookup("version_jar", false)
	c.CacheLookup("version_jar", true)
	c.Download("version_jar", 128)
	c.Replacement("game")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("version_jar", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.downloads.WithLabelValues("version_jar")))
	assert.Equal(t, 128.0, testutil.ToFloat64(c.downloadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replacements.WithLabelValues("game")))
}

func TestCollectors_NilIsNoop(t *testing.T) {
	t.Parallel()

	var c *Collectors
	assert.NotPanics(t, func() {
		c.CacheLookup("x", true)
		c.Download("x", 1)
		c.HashShortCircuit("x")
		c.Materialized()
		c.RegistryLookup(false)
		c.Replacement("x")
	})
}
