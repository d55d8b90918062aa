package processor

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"satcatflow/models"
)

// Placeholder ranges used when a record cannot be derived. Bounds are
// inclusive and values are whole numbers.
const (
	FallbackPeriodMin      = 1000 // minutes
	FallbackPeriodMax      = 1500
	FallbackInclinationMin = 0 // degrees
	FallbackInclinationMax = 90
	FallbackAxisMin        = 1000 // km
	FallbackAxisMax        = 3000
	FallbackLaunchYear     = 2000
)

// Result is the outcome of normalizing one raw record. A non-empty Reason
// means the orbital fields of Record are synthetic placeholders.
type Result struct {
	Record models.OrbitalRecord
	Reason string
}

// Degraded reports whether the fallback path produced the record.
func (r Result) Degraded() bool {
	return r.Reason != ""
}

// Normalizer turns raw catalog entries into orbital records. It is not safe
// for concurrent use because it owns its random source.
type Normalizer struct {
	rng *rand.Rand
}

// NewNormalizer returns a Normalizer whose placeholder values are drawn from a
// source seeded with seed, or from the clock when seed is 0.
func NewNormalizer(seed int64) *Normalizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Normalizer{rng: rand.New(rand.NewSource(seed))}
}

// Normalize never fails. Missing or non-numeric orbital inputs, or a
// derivation that is not finite, yield a degraded record instead.
func (n *Normalizer) Normalize(raw models.RawRecord) Result {
	rec, err := derive(raw)
	if err != nil {
		return Result{Record: n.fallback(raw), Reason: err.Error()}
	}
	return Result{Record: rec}
}

func derive(raw models.RawRecord) (models.OrbitalRecord, error) {
	apogee, err := floatField(raw, models.KeyApogee)
	if err != nil {
		return models.OrbitalRecord{}, err
	}
	perigee, err := floatField(raw, models.KeyPerigee)
	if err != nil {
		return models.OrbitalRecord{}, err
	}
	period, err := floatField(raw, models.KeyPeriod)
	if err != nil {
		return models.OrbitalRecord{}, err
	}
	inclination, err := floatField(raw, models.KeyInclination)
	if err != nil {
		return models.OrbitalRecord{}, err
	}
	catalogID, err := intField(raw, models.KeyNoradCatID)
	if err != nil {
		return models.OrbitalRecord{}, err
	}
	launchYear, err := intField(raw, models.KeyLaunchYear)
	if err != nil {
		return models.OrbitalRecord{}, err
	}

	semiMajor := (apogee + perigee) / 2
	if semiMajor == 0 {
		return models.OrbitalRecord{}, fmt.Errorf("semi-major axis is zero")
	}
	ecc := apogee/semiMajor - 1
	radicand := 1 - ecc*ecc
	if radicand < 0 {
		return models.OrbitalRecord{}, fmt.Errorf("eccentricity %g out of range", ecc)
	}
	semiMinor := semiMajor * math.Sqrt(radicand)
	if !finite(semiMajor, ecc, semiMinor) {
		return models.OrbitalRecord{}, fmt.Errorf("derived geometry is not finite")
	}

	rec := identity(raw)
	rec.CatalogID = catalogID
	rec.LaunchYear = launchYear
	rec.PeriodMinutes = period
	rec.InclinationDegrees = inclination
	rec.ApogeeKm = apogee
	rec.PerigeeKm = perigee
	rec.Eccentricity = ecc
	rec.SemiMajorAxisKm = semiMajor
	rec.SemiMinorAxisKm = semiMinor
	return rec, nil
}

// fallback keeps the identity fields and fills a circular placeholder orbit.
func (n *Normalizer) fallback(raw models.RawRecord) models.OrbitalRecord {
	axis := float64(n.between(FallbackAxisMin, FallbackAxisMax))

	rec := identity(raw)
	rec.CatalogID, _ = intField(raw, models.KeyNoradCatID)
	rec.LaunchYear = FallbackLaunchYear
	rec.PeriodMinutes = float64(n.between(FallbackPeriodMin, FallbackPeriodMax))
	rec.InclinationDegrees = float64(n.between(FallbackInclinationMin, FallbackInclinationMax))
	rec.ApogeeKm = axis
	rec.PerigeeKm = axis
	rec.Eccentricity = 0
	rec.SemiMajorAxisKm = axis
	rec.SemiMinorAxisKm = axis
	rec.Degraded = true
	return rec
}

func (n *Normalizer) between(lo, hi int) int {
	return lo + n.rng.Intn(hi-lo+1)
}

func identity(raw models.RawRecord) models.OrbitalRecord {
	return models.OrbitalRecord{
		InternationalDesignator: text(raw[models.KeyIntlDes]),
		ObjectType:              text(raw[models.KeyObjectType]),
		Name:                    text(raw[models.KeySatName]),
		Country:                 text(raw[models.KeyCountry]),
		LaunchDate:              text(raw[models.KeyLaunch]),
		CurrentFlag:             text(raw[models.KeyCurrent]),
	}
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func floatField(raw models.RawRecord, key string) (float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is missing", key)
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s is not numeric: %q", key, t)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%s is not numeric: %q", key, t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", key, v)
	}

	if !finite(f) {
		return 0, fmt.Errorf("%s is not finite", key)
	}
	return f, nil
}

func intField(raw models.RawRecord, key string) (int, error) {
	f, err := floatField(raw, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s is not an integer: %g", key, f)
	}
	return int(f), nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
