package model

import "encoding/json"

// Плоские DTO справочных данных из NGSI-LD брокера.
// Отсутствующий атрибут сущности остаётся nil — значение никогда
// не приводится к нулю молча.

// Sector — школьный сектор (SecteurScolaire).
type Sector struct {
	ID          string  `json:"id"`
	NomSecteur  *string `json:"nomSecteur"`
	CodeSecteur *string `json:"codeSecteur"`
}

// School — учебное заведение (EtablissementScolaire).
type School struct {
	ID                string  `json:"id"`
	UAI               *string `json:"uai"`
	Patronyme         *string `json:"patronyme"`
	SecteurID         *string `json:"secteurId"`
	TypeEtablissement *string `json:"typeEtablissement"`
}

// Classe — класс учебного заведения.
type Classe struct {
	ID               string   `json:"id"`
	UAI              *string  `json:"uai"`
	Niveau           *string  `json:"niveau"`
	Effectifs        *float64 `json:"effectifs"`
	EffectifsPredits *float64 `json:"effectifsPredits"`
}

// Demography — демографические данные сектора (Demographie).
type Demography struct {
	ID                 string   `json:"id"`
	SecteurID          *string  `json:"secteurId"`
	Naissances         *float64 `json:"naissances"`
	NaissancesPredites *float64 `json:"naissancesPredites"`
}

// HousingConstruction — строительство жилья в секторе (ConstructionLogements).
type HousingConstruction struct {
	ID            string   `json:"id"`
	SecteurID     *string  `json:"secteurId"`
	DateLivraison *string  `json:"dateLivraison"`
	NbLogements   *float64 `json:"nbLogements"`
	TypeLogement  *string  `json:"typeLogement"`
}

// MapSector — полигон сектора для карты.
// Geometry — GeoJSON-геометрия как есть, без интерпретации.
type MapSector struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Geometry json.RawMessage `json:"geometry"`
}

// MapSchool — точка учебного заведения для карты.
type MapSchool struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UAI       string          `json:"uai"`
	Geometry  json.RawMessage `json:"geometry"`
	Effectifs *float64        `json:"effectifs"`
}

// MapData — комбинированный ответ для карты: сектора и школы,
// отфильтрованные по наличию геометрии.
type MapData struct {
	Sectors []MapSector `json:"sectors"`
	Schools []MapSchool `json:"schools"`
}
