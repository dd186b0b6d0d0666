package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/geom"
)

func TestObservesTransactions(t *testing.T) {
	m := New(prometheus.NewRegistry())
	e := engine.NewEngine(engine.WithObserver(m))
	e.LoadSampleDocument("doc_m")

	_, err := e.Apply(context.Background(), engine.Request{
		Transform: geom.Translation(geom.V(1, 0, 0)),
		Filter:    &document.Filter{Categories: []string{"Walls"}},
	})
	require.NoError(t, err)
	_, err = e.Apply(context.Background(), engine.Request{Transform: geom.Identity()})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransformsTotal.WithLabelValues("committed", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransformsTotal.WithLabelValues("rolledBack", "INVALID_INPUT")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.EntitiesTotal.WithLabelValues("curve")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EntitiesTotal.WithLabelValues("point")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}
