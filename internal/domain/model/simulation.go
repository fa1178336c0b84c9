package model

import (
	"encoding/json"
	"time"
)

// SimulationStatus — статус симуляции. Переходы строго вперёд:
// PENDING → RUNNING → DONE | ERROR; возврат в PENDING невозможен.
type SimulationStatus string

const (
	StatusPending SimulationStatus = "PENDING"
	StatusRunning SimulationStatus = "RUNNING"
	StatusDone    SimulationStatus = "DONE"
	StatusError   SimulationStatus = "ERROR"
)

// statusRank — порядок статусов для проверки переходов.
var statusRank = map[SimulationStatus]int{
	StatusPending: 0,
	StatusRunning: 1,
	StatusDone:    2,
	StatusError:   2,
}

// Valid проверяет, что статус — одно из допустимых значений.
func (s SimulationStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Допустимы только движения вперёд; DONE и ERROR — терминальные.
func (s SimulationStatus) CanTransitionTo(next SimulationStatus) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	if s == StatusDone || s == StatusError {
		return false
	}
	return nxt > cur
}

// Simulation — сохранённая конфигурация прогноза внутри тенанта.
// Создаётся пользователем, мутируется внешним worker-ом, не удаляется.
type Simulation struct {
	// ID — UUID симуляции.
	ID string `json:"id"`
	// TenantID — внутренний ID тенанта (не внешний ключ).
	TenantID string `json:"-"`
	// Name — имя симуляции (обязательное).
	Name string `json:"name"`
	// Description — описание (опциональное).
	Description *string `json:"description,omitempty"`
	// Status — текущий статус.
	Status SimulationStatus `json:"status"`
	// Parameters — параметры прогноза (произвольный JSON-документ).
	Parameters json.RawMessage `json:"parameters"`
	// CreatedBy — email или username создателя.
	CreatedBy string `json:"createdBy"`
	// CreatedAt — время создания.
	CreatedAt time.Time `json:"createdAt"`
}

// SimulationResult — строка результата симуляции для одного
// учреждения (UAI), года и уровня. Пишется внешним worker-ом,
// здесь только читается.
type SimulationResult struct {
	// Annee — учебный год.
	Annee int `json:"annee"`
	// Niveau — уровень класса (CP, CM2, 2nde, ...).
	Niveau string `json:"niveau"`
	// EffectifPred — прогнозируемая численность.
	EffectifPred float64 `json:"effectif_pred"`
}
