package features

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

const geoLookback = 90 * 24 * time.Hour

const earthRadiusKM = 6371.0

// haversine returns the great-circle distance between two points in km.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

// geoSignals evaluates where the transaction claims to originate: high-risk
// jurisdiction lookups, the account's country history, and impossible
// travel between consecutive located transactions.
//
// Keys: current_country, current_city, is_high_risk_location,
// high_risk_severity, is_sanctioned, is_embargoed, location_block_by_default,
// location_fraud_rate, countries_count, is_new_country, primary_country,
// deviates_from_primary_country, country_usage_percentage,
// travel_distance_km, travel_hours, travel_speed_kmh, impossible_travel.
func (a *Assembler) geoSignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	country, hasCountry := tx.Metadata.Str("country")
	city, _ := tx.Metadata.Str("city")
	if !hasCountry {
		// No geo metadata on the candidate: the whole group is unknown.
		return out, nil
	}
	out["current_country"] = ledger.String(country)
	if city != "" {
		out["current_city"] = ledger.String(city)
	}

	loc, err := a.store.HighRiskLocation(ctx, country, city)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		out["is_high_risk_location"] = ledger.Bool(false)
	case err != nil:
		return nil, err
	default:
		out["is_high_risk_location"] = ledger.Bool(true)
		out["high_risk_severity"] = ledger.Number(loc.Severity)
		out["is_sanctioned"] = ledger.Bool(loc.Sanctioned)
		out["is_embargoed"] = ledger.Bool(loc.Embargoed)
		out["location_block_by_default"] = ledger.Bool(loc.BlockByDefault)
		out["location_fraud_rate"] = ledger.Number(loc.FraudRate)
	}

	history, err := a.store.AccountTransactions(ctx, tx.AccountID, now.Add(-geoLookback))
	if err != nil {
		return nil, err
	}

	// Country history.
	countryCounts := make(map[string]int)
	located := 0
	for _, h := range history {
		if h.ID == tx.ID {
			continue
		}
		if c, ok := h.Metadata.Str("country"); ok {
			countryCounts[c]++
			located++
		}
	}
	out["countries_count"] = ledger.Number(float64(len(countryCounts)))
	if located > 0 {
		out["is_new_country"] = ledger.Bool(countryCounts[country] == 0)
		out["country_usage_percentage"] = ledger.Number(float64(countryCounts[country]) / float64(located))

		primary, primaryCount := "", 0
		for c, n := range countryCounts {
			if n > primaryCount || (n == primaryCount && c < primary) {
				primary, primaryCount = c, n
			}
		}
		if float64(primaryCount)/float64(located) >= a.cfg.PrimaryCountryShare {
			out["primary_country"] = ledger.String(primary)
			out["deviates_from_primary_country"] = ledger.Bool(country != primary)
		}
	}

	// Impossible travel against the last located transaction.
	lat, hasLat := tx.Metadata.Float("lat")
	lon, hasLon := tx.Metadata.Float("lon")
	if !hasLat || !hasLon {
		return out, nil
	}
	var prev *ledger.Transaction
	var prevLat, prevLon float64
	for _, h := range history {
		if h.ID == tx.ID || !h.Timestamp.Before(tx.Timestamp) {
			continue
		}
		hLat, okLat := h.Metadata.Float("lat")
		hLon, okLon := h.Metadata.Float("lon")
		if !okLat || !okLon {
			continue
		}
		if prev == nil || h.Timestamp.After(prev.Timestamp) {
			prev, prevLat, prevLon = h, hLat, hLon
		}
	}
	if prev == nil {
		return out, nil
	}

	distance := haversine(prevLat, prevLon, lat, lon)
	hours := tx.Timestamp.Sub(prev.Timestamp).Hours()
	out["travel_distance_km"] = ledger.Number(distance)
	out["travel_hours"] = ledger.Number(hours)

	// Short hops are never flagged: city-scale GPS jitter produces absurd
	// speeds over tiny distances.
	if distance < a.cfg.MinTravelDistanceKM {
		out["impossible_travel"] = ledger.Bool(false)
		return out, nil
	}
	if hours <= 0 {
		out["impossible_travel"] = ledger.Bool(true)
		return out, nil
	}
	speed := distance / hours
	out["travel_speed_kmh"] = ledger.Number(speed)
	out["impossible_travel"] = ledger.Bool(speed > a.cfg.MaxTravelSpeedKMH)
	return out, nil
}
