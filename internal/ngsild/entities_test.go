package ngsild

import (
	"encoding/json"
	"testing"
)

// decodeEntity декодирует JSON в Entity для тестов.
func decodeEntity(t *testing.T, data string) Entity {
	t.Helper()
	var e Entity
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		t.Fatalf("декодирование сущности: %v", err)
	}
	return e
}

func TestEntity_Unmarshal(t *testing.T) {
	e := decodeEntity(t, `{
		"id": "urn:ngsi-ld:EtablissementScolaire:0751234A",
		"type": "EtablissementScolaire",
		"@context": "https://smartdatamodels.org/context.jsonld",
		"uai": {"type": "Property", "value": "0751234A"},
		"capacite": {"type": "Property", "value": 420, "unitCode": "C62"},
		"secteur": {"type": "Relationship", "object": "urn:ngsi-ld:SecteurScolaire:1"}
	}`)

	if e.ID != "urn:ngsi-ld:EtablissementScolaire:0751234A" {
		t.Errorf("ID = %q", e.ID)
	}
	if e.Type != "EtablissementScolaire" {
		t.Errorf("Type = %q", e.Type)
	}
	if _, ok := e.Attrs["@context"]; ok {
		t.Error("@context не должен попадать в Attrs")
	}

	if p := e.StringProp("uai"); p == nil || *p != "0751234A" {
		t.Errorf("uai = %v", p)
	}
	if n := e.NumberProp("capacite"); n == nil || *n != 420 {
		t.Errorf("capacite = %v", n)
	}
	if r := e.Relationship("secteur"); r == nil || *r != "urn:ngsi-ld:SecteurScolaire:1" {
		t.Errorf("secteur = %v", r)
	}
	if got := e.Attrs["capacite"].UnitCode; got != "C62" {
		t.Errorf("unitCode = %q", got)
	}
}

func TestEntity_MissingAttributesStayNil(t *testing.T) {
	e := decodeEntity(t, `{"id": "urn:x:1", "type": "Classe"}`)

	if p := e.StringProp("niveau"); p != nil {
		t.Errorf("отсутствующий атрибут должен быть nil, получено %v", *p)
	}
	if n := e.NumberProp("effectifs"); n != nil {
		t.Errorf("отсутствующий атрибут должен быть nil, получено %v", *n)
	}
	if r := e.Relationship("secteur"); r != nil {
		t.Errorf("отсутствующая связь должна быть nil, получено %v", *r)
	}
	if g := e.Geometry("location"); g != nil {
		t.Errorf("отсутствующая геометрия должна быть nil, получено %s", g)
	}
}

func TestEntity_KindMismatch(t *testing.T) {
	// Property не читается как Relationship и наоборот
	e := decodeEntity(t, `{
		"id": "urn:x:1", "type": "T",
		"uai": {"type": "Property", "value": "0751234A"},
		"secteur": {"type": "Relationship", "object": "urn:x:2"}
	}`)

	if r := e.Relationship("uai"); r != nil {
		t.Errorf("Property не должен читаться как Relationship, получено %v", *r)
	}
	if p := e.StringProp("secteur"); p != nil {
		t.Errorf("Relationship не должен читаться как Property, получено %v", *p)
	}
}

func TestToClasse(t *testing.T) {
	e := decodeEntity(t, `{
		"id": "urn:ngsi-ld:Classe:1", "type": "Classe",
		"uai": {"type": "Property", "value": "0751234A"},
		"niveau": {"type": "Property", "value": "CM2"},
		"effectifs": {"type": "Property", "value": 27}
	}`)

	c := ToClasse(e)
	if c.ID != "urn:ngsi-ld:Classe:1" {
		t.Errorf("ID = %q", c.ID)
	}
	if c.Niveau == nil || *c.Niveau != "CM2" {
		t.Errorf("Niveau = %v", c.Niveau)
	}
	if c.Effectifs == nil || *c.Effectifs != 27 {
		t.Errorf("Effectifs = %v", c.Effectifs)
	}
	// effectifsPredits отсутствует — остаётся nil, не ноль
	if c.EffectifsPredits != nil {
		t.Errorf("EffectifsPredits = %v, ожидается nil", *c.EffectifsPredits)
	}
}

func TestToDemography(t *testing.T) {
	e := decodeEntity(t, `{
		"id": "urn:ngsi-ld:Demographie:1", "type": "Demographie",
		"secteur": {"type": "Relationship", "object": "urn:ngsi-ld:SecteurScolaire:1"},
		"naissances": {"type": "Property", "value": 112, "observedAt": "2024-01-01T00:00:00Z"}
	}`)

	d := ToDemography(e)
	if d.SecteurID == nil || *d.SecteurID != "urn:ngsi-ld:SecteurScolaire:1" {
		t.Errorf("SecteurID = %v", d.SecteurID)
	}
	if d.Naissances == nil || *d.Naissances != 112 {
		t.Errorf("Naissances = %v", d.Naissances)
	}
	if d.NaissancesPredites != nil {
		t.Error("NaissancesPredites должен быть nil")
	}
}

func TestToMapSector_NameFallback(t *testing.T) {
	withName := decodeEntity(t, `{
		"id": "urn:s:1", "type": "SecteurScolaire",
		"nomSecteur": {"type": "Property", "value": "Centre"},
		"codeSecteur": {"type": "Property", "value": "S01"},
		"location": {"type": "GeoProperty", "value": {"type": "Polygon", "coordinates": []}}
	}`)
	if got := ToMapSector(withName).Name; got != "Centre" {
		t.Errorf("Name = %q, ожидается Centre", got)
	}

	codeOnly := decodeEntity(t, `{
		"id": "urn:s:2", "type": "SecteurScolaire",
		"codeSecteur": {"type": "Property", "value": "S02"}
	}`)
	if got := ToMapSector(codeOnly).Name; got != "S02" {
		t.Errorf("Name = %q, ожидается S02", got)
	}

	bare := decodeEntity(t, `{"id": "urn:s:3", "type": "SecteurScolaire"}`)
	if got := ToMapSector(bare).Name; got != "urn:s:3" {
		t.Errorf("Name = %q, ожидается ID сущности", got)
	}
	if ToMapSector(bare).Geometry != nil {
		t.Error("Geometry без location должна быть nil")
	}
}

func TestToMapSchool_Geometry(t *testing.T) {
	e := decodeEntity(t, `{
		"id": "urn:e:1", "type": "EtablissementScolaire",
		"uai": {"type": "Property", "value": "0751234A"},
		"patronyme": {"type": "Property", "value": "École Jules Ferry"},
		"location": {"type": "GeoProperty", "value": {"type": "Point", "coordinates": [2.35, 48.85]}},
		"effectifs": {"type": "Property", "value": 310}
	}`)

	s := ToMapSchool(e)
	if s.Name != "École Jules Ferry" {
		t.Errorf("Name = %q", s.Name)
	}
	if s.UAI != "0751234A" {
		t.Errorf("UAI = %q", s.UAI)
	}
	if s.Geometry == nil {
		t.Fatal("Geometry не должна быть nil")
	}
	var geom struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(s.Geometry, &geom); err != nil || geom.Type != "Point" {
		t.Errorf("Geometry = %s", s.Geometry)
	}
	if s.Effectifs == nil || *s.Effectifs != 310 {
		t.Errorf("Effectifs = %v", s.Effectifs)
	}
}

func TestFilterSet(t *testing.T) {
	var empty FilterSet
	if expr, ok := empty.Expr(); ok {
		t.Errorf("пустой набор не должен давать выражение, получено %q", expr)
	}

	var f FilterSet
	f.Eq("uai", "0751234A").Eq("niveau", `C"M2`).EqNum("annee", "2024")
	expr, ok := f.Expr()
	if !ok {
		t.Fatal("ожидалось выражение")
	}
	want := `uai=="0751234A";niveau=="C\"M2";annee==2024`
	if expr != want {
		t.Errorf("Expr() = %q, ожидается %q", expr, want)
	}

	// Пустые значения игнорируются
	var g FilterSet
	g.Eq("uai", "").EqNum("annee", "")
	if _, ok := g.Expr(); ok {
		t.Error("пустые значения не должны формировать сравнения")
	}
}
