package measure

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"takeoff-api/internal/takeoff/models"
)

// ============================================================
// Geometry
// ============================================================

// PixelLength — длина ломаной в пикселях рендера.
func PixelLength(points []models.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	segments := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		segments = append(segments, math.Hypot(points[i].X-points[i-1].X, points[i].Y-points[i-1].Y))
	}
	return floats.Sum(segments)
}

// PixelArea — площадь многоугольника в пикселях² (формула шнуровки).
// Контур замыкается на первую точку автоматически.
func PixelArea(points []models.Point) float64 {
	if len(points) < 3 {
		return 0
	}
	terms := make([]float64, 0, len(points))
	for i := range points {
		j := (i + 1) % len(points)
		terms = append(terms, points[i].X*points[j].Y-points[j].X*points[i].Y)
	}
	return math.Abs(floats.Sum(terms)) / 2
}

// Apply заполняет производные значения аннотации по масштабу страницы.
// Геометрия и масштаб обязаны быть в одном пространстве рендера:
// сервис хранит координаты как получил и нормализацию не выполняет.
func Apply(a *models.MeasurementAnnotation, setting models.ScaleSetting) {
	if setting.PixelsPerUnit <= 0 {
		return
	}

	length := PixelLength(a.Points) / setting.PixelsPerUnit
	a.Length = &length
	a.Unit = setting.Unit

	if a.Kind == models.MeasurementPolygon {
		area := PixelArea(a.Points) / (setting.PixelsPerUnit * setting.PixelsPerUnit)
		a.Area = &area
	}
}
