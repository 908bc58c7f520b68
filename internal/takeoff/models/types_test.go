package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrationGesture(t *testing.T) {
	g := CalibrationGesture{}
	assert.False(t, g.Complete())

	g.Add(Point{X: 1, Y: 1})
	assert.False(t, g.Complete())

	g.Add(Point{X: 2, Y: 2})
	assert.True(t, g.Complete())
	assert.Len(t, g.Points, 2)

	// Третья точка начинает жест заново.
	g.Add(Point{X: 3, Y: 3})
	assert.False(t, g.Complete())
	assert.Equal(t, []Point{{X: 3, Y: 3}}, g.Points)

	g.Reset()
	assert.Empty(t, g.Points)
}

func TestKnownUnit(t *testing.T) {
	for _, unit := range []Unit{UnitFeet, UnitInches, UnitYards, UnitMeters, UnitCentimeters, UnitMillimeters} {
		assert.True(t, KnownUnit(unit), string(unit))
	}
	assert.False(t, KnownUnit("furlong"))
	assert.False(t, KnownUnit(""))
}
