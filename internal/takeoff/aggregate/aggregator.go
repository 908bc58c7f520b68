package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/repository"
)

// ============================================================
// Takeoff Item Aggregator
// ============================================================

// Ключи, под которыми разные поколения analysis-payload прячут список строк.
var legacyItemKeys = []string{"items", "takeoff_items", "takeoffItems", "line_items"}

// Namespace для детерминированных id строк без идентификатора.
var itemNamespace = uuid.MustParse("5f1c6c2e-9d63-4a1a-9f6e-2b7a30c4f7d1")

// PlanAnalysis — сырой analysis-результат одного плана, как он лежит
// в хранилище. Payload может быть JSON-строкой или уже разобранной
// структурой, список строк — под одним из legacy-ключей.
type PlanAnalysis struct {
	RecordID string
	PlanID   string
	Payload  any
}

// Aggregator собирает из per-plan analysis-записей один редактируемый
// список строк объемов на уровне job.
type Aggregator struct {
	store repository.Store
}

func New(store repository.Store) *Aggregator {
	return &Aggregator{store: store}
}

// ============================================================
// Aggregation
// ============================================================

// Collect — чистая часть агрегации: разбирает payload каждого плана,
// назначает стабильные id строкам без идентификатора, помечает строку
// планом-владельцем и конкатенирует в порядке планов. Неразборчивый
// payload логируется и пропускается, остальные планы не страдают.
func Collect(analyses []PlanAnalysis) []models.TakeoffItem {
	var out []models.TakeoffItem
	for _, analysis := range analyses {
		items, err := extractItems(analysis.Payload)
		if err != nil {
			log.Printf("[TAKEOFF] skip analysis for plan %s: %v", analysis.PlanID, err)
			continue
		}
		for index, raw := range items {
			item := coerceItem(raw)
			item.PlanID = analysis.PlanID
			if item.ID == "" {
				item.ID = stableItemID(analysis.PlanID, index)
			}
			out = append(out, item)
		}
	}
	return out
}

// Aggregate читает analysis-записи всех планов job и собирает их в
// один список.
func (a *Aggregator) Aggregate(ctx context.Context, jobID string) ([]models.TakeoffItem, error) {
	analyses, err := a.loadAnalyses(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return Collect(analyses), nil
}

// ApplyEdit заменяет строку с тем же id; строка с новым id добавляется
// в конец. Возвращает обновленный список и id плана-владельца (пустой,
// если у строки нет ссылки на план — тогда Persist подберет первый план
// с analysis-записью).
func ApplyEdit(items []models.TakeoffItem, edited models.TakeoffItem) ([]models.TakeoffItem, string) {
	edited = coerceDefaults(edited)
	for i := range items {
		if items[i].ID == edited.ID {
			if edited.PlanID == "" {
				edited.PlanID = items[i].PlanID
			}
			items[i] = edited
			return items, edited.PlanID
		}
	}
	if edited.ID == "" {
		edited.ID = uuid.NewString()
	}
	items = append(items, edited)
	return items, edited.PlanID
}

// ============================================================
// Persistence
// ============================================================

// PlanWriteResult — итог записи одного плана.
type PlanWriteResult struct {
	PlanID string `json:"plan_id"`
	Items  int    `json:"items"`
	Err    string `json:"error,omitempty"`
}

// PersistReport — по-плановый отчет Persist.
type PersistReport struct {
	Plans []PlanWriteResult `json:"plans"`
}

// Summary — итог вида "2 of 3 plans updated".
func (r PersistReport) Summary() string {
	succeeded := 0
	for _, plan := range r.Plans {
		if plan.Err == "" {
			succeeded++
		}
	}
	return fmt.Sprintf("%d of %d plans updated", succeeded, len(r.Plans))
}

// Failed сообщает, была ли хоть одна неудачная запись. При любом отказе
// путь восстановления — полная перезагрузка агрегата из хранилища,
// частичный merge не выполняется.
func (r PersistReport) Failed() bool {
	for _, plan := range r.Plans {
		if plan.Err != "" {
			return true
		}
	}
	return false
}

// Persist группирует строки по плану-владельцу, снимает служебные поля
// агрегата (id, plan_id) и пишет по одной записи на план. Пишутся только
// планы из dirtyPlans (пустой список — все планы со строками); запись
// плана всегда содержит полный набор его строк, чтобы не потерять
// нетронутые. Отказ записи одного плана не отменяет остальные.
func (a *Aggregator) Persist(ctx context.Context, jobID string, items []models.TakeoffItem, dirtyPlans ...string) (PersistReport, error) {
	analyses, err := a.loadAnalyses(ctx, jobID)
	if err != nil {
		return PersistReport{}, err
	}

	recordByPlan := make(map[string]string, len(analyses))
	var planOrder []string
	for _, analysis := range analyses {
		recordByPlan[analysis.PlanID] = analysis.RecordID
		planOrder = append(planOrder, analysis.PlanID)
	}

	grouped := make(map[string][]models.TakeoffItem)
	for _, item := range items {
		planID := item.PlanID
		if _, ok := recordByPlan[planID]; !ok {
			// Строка без владельца уходит в первый план с analysis-записью.
			if len(planOrder) == 0 {
				return PersistReport{}, fmt.Errorf("job %s has no analysis records", jobID)
			}
			planID = planOrder[0]
		}
		grouped[planID] = append(grouped[planID], item)
	}

	dirty := make(map[string]bool, len(dirtyPlans))
	for _, planID := range dirtyPlans {
		if _, ok := recordByPlan[planID]; !ok && len(planOrder) > 0 {
			planID = planOrder[0]
		}
		dirty[planID] = true
	}

	report := PersistReport{}
	for _, planID := range planOrder {
		planItems, ok := grouped[planID]
		if !ok {
			continue
		}
		if len(dirty) > 0 && !dirty[planID] {
			continue
		}
		result := PlanWriteResult{PlanID: planID, Items: len(planItems)}
		err := a.store.Write(ctx, repository.CollectionPlanAnalyses, recordByPlan[planID], map[string]any{
			"payload": map[string]any{"items": stripItems(planItems)},
		})
		if err != nil {
			log.Printf("[TAKEOFF] persist plan %s: %v", planID, err)
			result.Err = err.Error()
		}
		report.Plans = append(report.Plans, result)
	}
	return report, nil
}

// ============================================================
// Payload parsing
// ============================================================

func (a *Aggregator) loadAnalyses(ctx context.Context, jobID string) ([]PlanAnalysis, error) {
	records, err := a.store.Read(ctx, repository.CollectionPlanAnalyses, repository.Filter{
		"job_id": jobID,
	})
	if err != nil {
		return nil, fmt.Errorf("load analyses: %w", err)
	}

	analyses := make([]PlanAnalysis, 0, len(records))
	for _, record := range records {
		planID, _ := record.Data["plan_id"].(string)
		analyses = append(analyses, PlanAnalysis{
			RecordID: record.ID,
			PlanID:   planID,
			Payload:  record.Data["payload"],
		})
	}
	// Порядок планов стабилен между вызовами.
	sort.Slice(analyses, func(i, j int) bool { return analyses[i].PlanID < analyses[j].PlanID })
	return analyses, nil
}

// extractItems достает список строк из payload любого поколения.
func extractItems(payload any) ([]map[string]any, error) {
	if raw, ok := payload.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, fmt.Errorf("malformed payload: %w", err)
		}
		payload = decoded
	}

	switch v := payload.(type) {
	case nil:
		return nil, fmt.Errorf("empty payload")
	case []any:
		return toItemMaps(v)
	case map[string]any:
		for _, key := range legacyItemKeys {
			if nested, ok := v[key]; ok {
				list, ok := nested.([]any)
				if !ok {
					return nil, fmt.Errorf("key %q is not a list", key)
				}
				return toItemMaps(list)
			}
		}
		return nil, fmt.Errorf("no items key in payload")
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}

func toItemMaps(list []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(list))
	for i, element := range list {
		item, ok := element.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		out = append(out, item)
	}
	return out, nil
}

// coerceItem переводит сырую строку payload в TakeoffItem, приводя
// строковые числа и подставляя безопасные дефолты вместо NaN.
func coerceItem(raw map[string]any) models.TakeoffItem {
	item := models.TakeoffItem{}
	if id, ok := raw["id"].(string); ok {
		item.ID = id
	}
	if category, ok := raw["category"].(string); ok {
		item.Category = category
	}
	if description, ok := raw["description"].(string); ok {
		item.Description = description
	}
	if unit, ok := raw["unit"].(string); ok {
		item.Unit = unit
	}
	if quantity, ok := toNumber(raw["quantity"]); ok {
		item.Quantity = quantity
	}
	if cost, ok := toNumber(raw["unit_cost"]); ok {
		item.UnitCost = &cost
	}
	return coerceDefaults(item)
}

func coerceDefaults(item models.TakeoffItem) models.TakeoffItem {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.Unit == "" {
		item.Unit = "EA"
	}
	return item
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// stableItemID — детерминированный id для строки без идентификатора:
// одинаковый payload дает одинаковые id в каждом проходе.
func stableItemID(planID string, index int) string {
	return uuid.NewSHA1(itemNamespace, []byte(planID+"#"+strconv.Itoa(index))).String()
}

// stripItems снимает служебные поля агрегата перед записью в план.
func stripItems(items []models.TakeoffItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		doc := map[string]any{
			"category":    item.Category,
			"description": item.Description,
			"quantity":    item.Quantity,
			"unit":        item.Unit,
		}
		if item.UnitCost != nil {
			doc["unit_cost"] = *item.UnitCost
		}
		out = append(out, doc)
	}
	return out
}
