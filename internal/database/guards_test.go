package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tygxx/human-monitor-system/internal/models"
)

func TestFeatureRoundTrip(t *testing.T) {
	feature := []float64{0.125, -1.5, 0, 3.25}

	decoded, err := decodeFeature(EncodeFeature(feature))
	require.NoError(t, err)
	assert.Equal(t, feature, decoded)
}

func TestDecodeFeature_BadLength(t *testing.T) {
	_, err := decodeFeature(make([]byte, 13))
	require.Error(t, err)
}

func TestRegisterGuard_RejectsIncompleteGuard(t *testing.T) {
	d := &Database{}

	err := d.RegisterGuard(context.Background(), models.Guard{FaceFeature: []float64{0.1}})
	require.Error(t, err)

	err = d.RegisterGuard(context.Background(), models.Guard{ID: "G1"})
	require.Error(t, err)
}
