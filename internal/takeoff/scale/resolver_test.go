package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takeoff-api/internal/takeoff/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		p1, p2   models.Point
		distance string
		want     float64
		wantUnit models.Unit
	}{
		{"horizontal", models.Point{X: 0, Y: 0}, models.Point{X: 100, Y: 0}, "10 ft", 10.0, models.UnitFeet},
		{"vertical", models.Point{X: 5, Y: 10}, models.Point{X: 5, Y: 210}, "4 m", 50.0, models.UnitMeters},
		{"diagonal", models.Point{X: 0, Y: 0}, models.Point{X: 30, Y: 40}, "25 ft", 2.0, models.UnitFeet},
		{"fractional", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0}, "2.5 in", 4.0, models.UnitInches},
		{"uppercase unit", models.Point{X: 0, Y: 0}, models.Point{X: 100, Y: 0}, "10 FT", 10.0, models.UnitFeet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setting, err := Resolve(tt.p1, tt.p2, tt.distance)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, setting.PixelsPerUnit, 1e-9)
			assert.Equal(t, tt.wantUnit, setting.Unit)
			assert.Equal(t, tt.distance, setting.Ratio)
		})
	}
}

func TestResolveRoundTrip(t *testing.T) {
	// pixelDistance / pixelsPerUnit восстанавливает исходную величину.
	p1 := models.Point{X: 12.5, Y: -3}
	p2 := models.Point{X: 90.25, Y: 41}

	setting, err := Resolve(p1, p2, "17.3 m")
	require.NoError(t, err)

	pixelDistance := PixelDistance(p1, p2)
	assert.InDelta(t, 17.3, pixelDistance/setting.PixelsPerUnit, 1e-9)
}

func TestResolveDegenerate(t *testing.T) {
	_, err := Resolve(models.Point{X: 50, Y: 50}, models.Point{X: 50, Y: 50}, "10 ft")
	assert.ErrorIs(t, err, ErrDegenerateGesture)

	// Вырожденный жест отклоняется независимо от строки дистанции.
	_, err = Resolve(models.Point{X: 50, Y: 50}, models.Point{X: 50, Y: 50}, "garbage")
	assert.ErrorIs(t, err, ErrDegenerateGesture)
}

func TestResolveInvalidDistance(t *testing.T) {
	p1 := models.Point{X: 0, Y: 0}
	p2 := models.Point{X: 100, Y: 0}

	tests := []struct {
		name     string
		distance string
	}{
		{"no unit", "10"},
		{"no magnitude", "ft"},
		{"non numeric", "abc ft"},
		{"negative", "-5 ft"},
		{"zero", "0 ft"},
		{"unknown unit", "10 furlong"},
		{"empty", ""},
		{"too many tokens", "10 ft extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(p1, p2, tt.distance)
			assert.ErrorIs(t, err, ErrInvalidDistance)
		})
	}
}
