package models

import "time"

// Attribution is reported with every entity state payload.
const Attribution = "Data provided by Yandex.Weather"

// Observation holds the current-conditions attributes of the weather entity,
// mapped from the `fact` block of the Yandex.Weather informers response.
type Observation struct {
	Temperature  float64   `json:"temperature"`
	FeelsLike    float64   `json:"feelsLike"`
	Condition    string    `json:"condition"`    // mapped condition class (sunny, rainy, ...)
	ConditionRaw string    `json:"conditionRaw"` // upstream condition code, verbatim
	Icon         string    `json:"icon"`
	WindSpeed    float64   `json:"windSpeed"`
	WindGust     float64   `json:"windGust"`
	WindBearing  string    `json:"windBearing"` // compass code ("nw", "c" for calm), verbatim
	PressureHPa  float64   `json:"pressureHpa"`
	PressureMmHg float64   `json:"pressureMmHg"`
	Humidity     int       `json:"humidity"`
	ObservedAt   time.Time `json:"observedAt"` // upstream observation timestamp
	FetchedAt    time.Time `json:"fetchedAt"`  // when this bridge fetched it
}

// ForecastPart holds one day-part forecast from `forecast.parts`.
type ForecastPart struct {
	PartName          string    `json:"partName"`
	Time              time.Time `json:"time,omitzero"`
	TempMin           float64   `json:"tempMin"`
	TempMax           float64   `json:"tempMax"`
	FeelsLike         float64   `json:"feelsLike"`
	Condition         string    `json:"condition"`
	ConditionRaw      string    `json:"conditionRaw"`
	Icon              string    `json:"icon"`
	PrecipitationMm   float64   `json:"precipitationMm"`
	PrecipitationProb int       `json:"precipitationProbability"`
	WindSpeed         float64   `json:"windSpeed"`
	WindBearing       string    `json:"windBearing"`
	PressureHPa       float64   `json:"pressureHpa"`
	PressureMmHg      float64   `json:"pressureMmHg"`
	Humidity          int       `json:"humidity"`
}

// Snapshot is a full entity refresh: one observation plus the forecast parts
// that arrived with it. This is what the snapshot store persists.
type Snapshot struct {
	Observation Observation    `json:"observation"`
	Forecast    []ForecastPart `json:"forecast,omitempty"`
}
