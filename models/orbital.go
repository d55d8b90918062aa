package models

// RawRecord is one untyped entry of the SATCAT JSON array. Values are strings,
// numbers or nil exactly as the catalog service returned them.
type RawRecord map[string]interface{}

// Catalog field keys used both for raw input and for emitted records.
const (
	KeyIntlDes       = "INTLDES"
	KeyNoradCatID    = "NORAD_CAT_ID"
	KeyObjectType    = "OBJECT_TYPE"
	KeySatName       = "SATNAME"
	KeyCountry       = "COUNTRY"
	KeyLaunch        = "LAUNCH"
	KeyLaunchYear    = "LAUNCH_YEAR"
	KeyCurrent       = "CURRENT"
	KeyPeriod        = "PERIOD"
	KeyInclination   = "INCLINATION"
	KeyApogee        = "APOGEE"
	KeyPerigee       = "PERIGEE"
	KeyEccentricity  = "ECCENTRICITY"
	KeySemiMajorAxis = "SEMI_MAJOR_AXIS"
	KeySemiMinorAxis = "SEMI_MINOR_AXIS"
	KeyDegraded      = "DEGRADED"
)

// Columns lists the tabular output columns in emission order. Degraded is
// deliberately not a column.
var Columns = []string{
	KeyIntlDes,
	KeyNoradCatID,
	KeyObjectType,
	KeySatName,
	KeyCountry,
	KeyLaunch,
	KeyLaunchYear,
	KeyCurrent,
	KeyPeriod,
	KeyInclination,
	KeyApogee,
	KeyPerigee,
	KeyEccentricity,
	KeySemiMajorAxis,
	KeySemiMinorAxis,
}

// OrbitalRecord is a catalog entry enriched with derived orbit geometry.
type OrbitalRecord struct {
	InternationalDesignator string  `json:"INTLDES"`
	CatalogID               int     `json:"NORAD_CAT_ID"`
	ObjectType              string  `json:"OBJECT_TYPE"`
	Name                    string  `json:"SATNAME"`
	Country                 string  `json:"COUNTRY"`
	LaunchDate              string  `json:"LAUNCH"`
	LaunchYear              int     `json:"LAUNCH_YEAR"`
	CurrentFlag             string  `json:"CURRENT"`
	PeriodMinutes           float64 `json:"PERIOD"`
	InclinationDegrees      float64 `json:"INCLINATION"`
	ApogeeKm                float64 `json:"APOGEE"`
	PerigeeKm               float64 `json:"PERIGEE"`
	Eccentricity            float64 `json:"ECCENTRICITY"`
	SemiMajorAxisKm         float64 `json:"SEMI_MAJOR_AXIS"`
	SemiMinorAxisKm         float64 `json:"SEMI_MINOR_AXIS"`
	Degraded                bool    `json:"DEGRADED"`
}

// Row returns the record's values in Columns order.
func (r OrbitalRecord) Row() []interface{} {
	return []interface{}{
		r.InternationalDesignator,
		r.CatalogID,
		r.ObjectType,
		r.Name,
		r.Country,
		r.LaunchDate,
		r.LaunchYear,
		r.CurrentFlag,
		r.PeriodMinutes,
		r.InclinationDegrees,
		r.ApogeeKm,
		r.PerigeeKm,
		r.Eccentricity,
		r.SemiMajorAxisKm,
		r.SemiMinorAxisKm,
	}
}
