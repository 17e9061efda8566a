package loyalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointsFor(t *testing.T) {
	assert.Equal(t, int64(0), PointsFor(0))
	assert.Equal(t, int64(0), PointsFor(999))
	assert.Equal(t, int64(1), PointsFor(1000))
	assert.Equal(t, int64(1), PointsFor(1999))
	assert.Equal(t, int64(240), PointsFor(240_000))
	assert.Equal(t, int64(0), PointsFor(-500))
}
