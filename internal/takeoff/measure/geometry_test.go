package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"takeoff-api/internal/takeoff/models"
)

func TestPixelLength(t *testing.T) {
	tests := []struct {
		name   string
		points []models.Point
		want   float64
	}{
		{"empty", nil, 0},
		{"single point", []models.Point{{X: 1, Y: 1}}, 0},
		{"segment", []models.Point{{X: 0, Y: 0}, {X: 3, Y: 4}}, 5},
		{"polyline", []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}}, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PixelLength(tt.points), 1e-9)
		})
	}
}

func TestPixelArea(t *testing.T) {
	tests := []struct {
		name   string
		points []models.Point
		want   float64
	}{
		{"degenerate", []models.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, 0},
		{"unit square", []models.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, 1},
		{"triangle", []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}, 50},
		{"clockwise square", []models.Point{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 0}}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PixelArea(tt.points), 1e-9)
		})
	}
}

func TestApply(t *testing.T) {
	setting := models.ScaleSetting{Ratio: "10 ft", PixelsPerUnit: 10, Unit: models.UnitFeet}

	line := models.MeasurementAnnotation{
		Kind:   models.MeasurementLine,
		Points: []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}
	Apply(&line, setting)
	if assert.NotNil(t, line.Length) {
		assert.InDelta(t, 10, *line.Length, 1e-9)
	}
	assert.Nil(t, line.Area)
	assert.Equal(t, models.UnitFeet, line.Unit)

	polygon := models.MeasurementAnnotation{
		Kind:   models.MeasurementPolygon,
		Points: []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
	}
	Apply(&polygon, setting)
	if assert.NotNil(t, polygon.Area) {
		assert.InDelta(t, 100, *polygon.Area, 1e-9) // 100x100 px при 10 px/ft = 100 ft²
	}
}

func TestApplyUncalibrated(t *testing.T) {
	annotation := models.MeasurementAnnotation{
		Kind:   models.MeasurementLine,
		Points: []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
	}
	Apply(&annotation, models.ScaleSetting{})

	// Без масштаба аннотация остается geometry-only.
	assert.Nil(t, annotation.Length)
	assert.Nil(t, annotation.Area)
}
