// entities.go — декодирование NGSI-LD сущностей в строгие внутренние
// записи. Каждый атрибут — тегированный вариант (Property, Relationship,
// GeoProperty); отсутствующий или нераспознанный атрибут остаётся
// явным nil, а не нулём.
package ngsild

import (
	"encoding/json"
	"fmt"

	"github.com/scolaplan/dashboard-module/internal/domain/model"
)

// AttrKind — вид атрибута NGSI-LD.
type AttrKind string

const (
	KindProperty     AttrKind = "Property"
	KindRelationship AttrKind = "Relationship"
	KindGeoProperty  AttrKind = "GeoProperty"
)

// Attribute — декодированный атрибут сущности.
type Attribute struct {
	// Kind — вид атрибута.
	Kind AttrKind
	// Value — значение Property/GeoProperty как есть (JSON).
	Value json.RawMessage
	// Object — идентификатор целевой сущности для Relationship.
	Object string
	// ObservedAt — отметка наблюдения (опционально).
	ObservedAt string
	// UnitCode — код единицы измерения (опционально).
	UnitCode string
}

// Entity — NGSI-LD сущность с декодированными атрибутами.
type Entity struct {
	// ID — URN-идентификатор сущности.
	ID string
	// Type — тип сущности.
	Type string
	// Attrs — атрибуты по имени; служебные поля (id, type, @context)
	// сюда не попадают.
	Attrs map[string]Attribute
}

// rawAttribute — сырой атрибут для декодирования.
type rawAttribute struct {
	Type       string          `json:"type"`
	Value      json.RawMessage `json:"value"`
	Object     string          `json:"object"`
	ObservedAt string          `json:"observedAt"`
	UnitCode   string          `json:"unitCode"`
}

// UnmarshalJSON декодирует сущность: id/type/@context — служебные,
// остальные поля — атрибуты с тегом type.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Attrs = make(map[string]Attribute, len(raw))

	for name, val := range raw {
		switch name {
		case "id":
			if err := json.Unmarshal(val, &e.ID); err != nil {
				return fmt.Errorf("поле id: %w", err)
			}
		case "type":
			if err := json.Unmarshal(val, &e.Type); err != nil {
				return fmt.Errorf("поле type: %w", err)
			}
		case "@context":
			// контекст не используется после запроса
		default:
			var ra rawAttribute
			if err := json.Unmarshal(val, &ra); err != nil {
				// не объект-атрибут (например, скаляр) — пропускаем,
				// отсутствие имени в Attrs — явный маркер
				continue
			}
			e.Attrs[name] = Attribute{
				Kind:       AttrKind(ra.Type),
				Value:      ra.Value,
				Object:     ra.Object,
				ObservedAt: ra.ObservedAt,
				UnitCode:   ra.UnitCode,
			}
		}
	}

	return nil
}

// StringProp возвращает строковое значение Property или nil.
func (e *Entity) StringProp(name string) *string {
	attr, ok := e.Attrs[name]
	if !ok || attr.Kind != KindProperty || attr.Value == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(attr.Value, &s); err != nil {
		return nil
	}
	return &s
}

// NumberProp возвращает числовое значение Property или nil.
func (e *Entity) NumberProp(name string) *float64 {
	attr, ok := e.Attrs[name]
	if !ok || attr.Kind != KindProperty || attr.Value == nil {
		return nil
	}
	var n float64
	if err := json.Unmarshal(attr.Value, &n); err != nil {
		return nil
	}
	return &n
}

// Relationship возвращает object связи или nil.
func (e *Entity) Relationship(name string) *string {
	attr, ok := e.Attrs[name]
	if !ok || attr.Kind != KindRelationship || attr.Object == "" {
		return nil
	}
	obj := attr.Object
	return &obj
}

// Geometry возвращает GeoJSON-значение GeoProperty или nil.
func (e *Entity) Geometry(name string) json.RawMessage {
	attr, ok := e.Attrs[name]
	if !ok || attr.Value == nil {
		return nil
	}
	// Брокеры отдают location и как GeoProperty, и как Property
	if attr.Kind != KindGeoProperty && attr.Kind != KindProperty {
		return nil
	}
	return attr.Value
}

// --- Плоские DTO по типам сущностей ---

// ToSector преобразует SecteurScolaire в плоский DTO.
func ToSector(e Entity) model.Sector {
	return model.Sector{
		ID:          e.ID,
		NomSecteur:  e.StringProp("nomSecteur"),
		CodeSecteur: e.StringProp("codeSecteur"),
	}
}

// ToSchool преобразует EtablissementScolaire в плоский DTO.
// secteur — Relationship на SecteurScolaire.
func ToSchool(e Entity) model.School {
	return model.School{
		ID:                e.ID,
		UAI:               e.StringProp("uai"),
		Patronyme:         e.StringProp("patronyme"),
		SecteurID:         e.Relationship("secteur"),
		TypeEtablissement: e.StringProp("typeEtablissement"),
	}
}

// ToClasse преобразует Classe в плоский DTO.
func ToClasse(e Entity) model.Classe {
	return model.Classe{
		ID:               e.ID,
		UAI:              e.StringProp("uai"),
		Niveau:           e.StringProp("niveau"),
		Effectifs:        e.NumberProp("effectifs"),
		EffectifsPredits: e.NumberProp("effectifsPredits"),
	}
}

// ToDemography преобразует Demographie в плоский DTO.
func ToDemography(e Entity) model.Demography {
	return model.Demography{
		ID:                 e.ID,
		SecteurID:          e.Relationship("secteur"),
		Naissances:         e.NumberProp("naissances"),
		NaissancesPredites: e.NumberProp("naissancesPredites"),
	}
}

// ToHousing преобразует ConstructionLogements в плоский DTO.
func ToHousing(e Entity) model.HousingConstruction {
	return model.HousingConstruction{
		ID:            e.ID,
		SecteurID:     e.Relationship("secteur"),
		DateLivraison: e.StringProp("dateLivraison"),
		NbLogements:   e.NumberProp("nbLogements"),
		TypeLogement:  e.StringProp("typeLogement"),
	}
}

// ToMapSector преобразует сектор в представление для карты.
// Name — nomSecteur, затем codeSecteur, затем ID сущности.
func ToMapSector(e Entity) model.MapSector {
	name := e.ID
	if p := e.StringProp("nomSecteur"); p != nil {
		name = *p
	} else if p := e.StringProp("codeSecteur"); p != nil {
		name = *p
	}

	return model.MapSector{
		ID:       e.ID,
		Name:     name,
		Geometry: e.Geometry("location"),
	}
}

// ToMapSchool преобразует учебное заведение в представление для карты.
func ToMapSchool(e Entity) model.MapSchool {
	name := e.ID
	if p := e.StringProp("patronyme"); p != nil {
		name = *p
	} else if p := e.StringProp("uai"); p != nil {
		name = *p
	}

	uai := ""
	if p := e.StringProp("uai"); p != nil {
		uai = *p
	}

	return model.MapSchool{
		ID:        e.ID,
		Name:      name,
		UAI:       uai,
		Geometry:  e.Geometry("location"),
		Effectifs: e.NumberProp("effectifs"),
	}
}
