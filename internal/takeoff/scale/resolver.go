package scale

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"takeoff-api/internal/takeoff/models"
)

// ============================================================
// Unit Ratio Resolver
// ============================================================

var (
	// ErrDegenerateGesture — обе точки калибровки совпадают.
	ErrDegenerateGesture = errors.New("calibration points are identical")

	// ErrInvalidDistance — строка дистанции не разбирается или не положительна.
	ErrInvalidDistance = errors.New("invalid distance")
)

// Порог, ниже которого пиксельная дистанция считается нулевой.
const degenerateEpsilon = 1e-9

// Resolve превращает завершенный жест калибровки и строку реальной
// дистанции ("10 ft") в масштаб страницы. Чистая функция: персистенцию
// выполняет вызывающий через Settings.
func Resolve(p1, p2 models.Point, distance string) (models.ScaleSetting, error) {
	pixelDistance := PixelDistance(p1, p2)
	if pixelDistance < degenerateEpsilon {
		return models.ScaleSetting{}, ErrDegenerateGesture
	}

	magnitude, unit, err := ParseDistance(distance)
	if err != nil {
		return models.ScaleSetting{}, err
	}

	return models.ScaleSetting{
		Ratio:         distance,
		PixelsPerUnit: pixelDistance / magnitude,
		Unit:          unit,
	}, nil
}

// PixelDistance — евклидово расстояние между точками жеста.
func PixelDistance(p1, p2 models.Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// ParseDistance разбирает строку вида "<число> <единица>".
func ParseDistance(distance string) (float64, models.Unit, error) {
	fields := strings.Fields(distance)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidDistance, distance)
	}

	magnitude, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidDistance, distance)
	}
	if magnitude <= 0 || math.IsInf(magnitude, 0) || math.IsNaN(magnitude) {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidDistance, distance)
	}

	unit := models.Unit(strings.ToLower(fields[1]))
	if !models.KnownUnit(unit) {
		return 0, "", fmt.Errorf("%w: unknown unit %q", ErrInvalidDistance, fields[1])
	}

	return magnitude, unit, nil
}
