package models

import "time"

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ============================================================
// Units & Scale
// ============================================================

type Unit string

const (
	UnitFeet        Unit = "ft"
	UnitInches      Unit = "in"
	UnitYards       Unit = "yd"
	UnitMeters      Unit = "m"
	UnitCentimeters Unit = "cm"
	UnitMillimeters Unit = "mm"
)

// KnownUnit сообщает, поддерживается ли единица измерения.
func KnownUnit(u Unit) bool {
	switch u {
	case UnitFeet, UnitInches, UnitYards, UnitMeters, UnitCentimeters, UnitMillimeters:
		return true
	}
	return false
}

// ScaleSetting — масштаб одной страницы плана: сколько пикселей рендера
// приходится на одну реальную единицу. PixelsPerUnit всегда > 0; страница
// без записи считается неоткалиброванной.
type ScaleSetting struct {
	Ratio         string  `json:"ratio"` // исходная строка дистанции, для отображения
	PixelsPerUnit float64 `json:"pixels_per_unit"`
	Unit          Unit    `json:"unit"`
}

// CalibrationGesture — две точки, поставленные пользователем в режиме
// калибровки. Не персистится.
type CalibrationGesture struct {
	Points []Point `json:"points"`
}

// Add добавляет точку. Третья точка начинает жест заново.
func (g *CalibrationGesture) Add(p Point) {
	if len(g.Points) >= 2 {
		g.Points = g.Points[:0]
	}
	g.Points = append(g.Points, p)
}

// Complete сообщает, собраны ли обе точки.
func (g *CalibrationGesture) Complete() bool {
	return len(g.Points) == 2
}

// Reset очищает жест (отмена калибровки).
func (g *CalibrationGesture) Reset() {
	g.Points = g.Points[:0]
}

// ============================================================
// Measurements
// ============================================================

type MeasurementKind string

const (
	MeasurementLine     MeasurementKind = "line"
	MeasurementPolygon  MeasurementKind = "polygon"
	MeasurementFreehand MeasurementKind = "freehand"
)

// MeasurementAnnotation — нарисованная пользователем фигура на странице плана.
// Геометрия хранится в пиксельном пространстве рендера; Length/Area
// вычисляются при чтении по масштабу страницы и не хранятся.
type MeasurementAnnotation struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	Page       int             `json:"page"`
	Kind       MeasurementKind `json:"kind"`
	Points     []Point         `json:"points"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`

	// Производные значения; nil — страница не откалибрована.
	Length *float64 `json:"length,omitempty"`
	Area   *float64 `json:"area,omitempty"`
	Unit   Unit     `json:"unit,omitempty"`
}

// ============================================================
// Takeoff items
// ============================================================

// TakeoffItem — одна строка объемов. PlanID указывает план, в чьей
// analysis-записи строка хранится; для агрегированного списка это
// служебное поле и при записи обратно не сохраняется.
type TakeoffItem struct {
	ID          string   `json:"id"`
	PlanID      string   `json:"plan_id,omitempty"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	Unit        string   `json:"unit"`
	UnitCost    *float64 `json:"unit_cost,omitempty"`
}

// ============================================================
// Plans & Jobs
// ============================================================

type Plan struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Name      string    `json:"name"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
