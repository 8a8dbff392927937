package features

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

const deviceLookback = 90 * 24 * time.Hour

// biometricBaseline is how many recent samples form the behavioral baseline.
const biometricBaseline = 50

// minBiometricSample is the baseline size below which behavioral deviation
// is unknown.
const minBiometricSample = 5

// screeningSignals runs the reference-table and session lookups: blacklist,
// VPN/proxy/tor ranges, device fingerprint history, and behavioral
// biometrics against the account baseline.
//
// Keys: is_blacklisted, blacklist_max_severity, blacklist_matches, is_vpn,
// vpn_kind, vpn_confidence, is_known_device, device_session_count,
// biometric_sample_count, typing_speed_zscore, mouse_velocity_zscore,
// behavioral_deviation, autofill_flip.
func (a *Assembler) screeningSignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)

	ip, _ := tx.Metadata.Str("ip")
	deviceID, _ := tx.Metadata.Str("device_id")
	routing, _ := tx.Metadata.Str("routing_number")

	// Blacklist: every identifying value on the transaction is screened in
	// one query; multiple hits reduce to a max severity.
	values := []string{tx.AccountID, tx.CounterpartyID, ip, deviceID, routing}
	matches, err := a.store.BlacklistMatches(ctx, values)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		maxSeverity := 0.0
		matched := make([]ledger.Value, 0, len(matches))
		for _, m := range matches {
			maxSeverity = math.Max(maxSeverity, m.Severity)
			matched = append(matched, ledger.String(m.EntityType+":"+m.EntityValue))
		}
		out["is_blacklisted"] = ledger.Bool(true)
		out["blacklist_max_severity"] = ledger.Number(maxSeverity)
		out["blacklist_matches"] = ledger.List(matched...)
	} else {
		out["is_blacklisted"] = ledger.Bool(false)
	}

	// Anonymizing infrastructure.
	if ip != "" {
		vpn, err := a.store.VPNMatch(ctx, ip)
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			out["is_vpn"] = ledger.Bool(false)
		case err != nil:
			return nil, err
		default:
			out["is_vpn"] = ledger.Bool(true)
			out["vpn_kind"] = ledger.String(vpn.Kind)
			out["vpn_confidence"] = ledger.Number(vpn.Confidence)
		}
	}

	// Device fingerprint against session history.
	if deviceID != "" {
		sessions, err := a.store.DeviceSessions(ctx, tx.AccountID, now.Add(-deviceLookback))
		if err != nil {
			return nil, err
		}
		known := false
		for _, s := range sessions {
			if s.DeviceID == deviceID {
				known = true
				break
			}
		}
		out["is_known_device"] = ledger.Bool(known)
		out["device_session_count"] = ledger.Number(float64(len(sessions)))
	}

	return out, a.biometricSignals(ctx, tx, out)
}

// biometricSignals compares the session's behavioral metrics against the
// account's historical baseline.
func (a *Assembler) biometricSignals(ctx context.Context, tx *ledger.Transaction, out map[string]ledger.Value) error {
	typing, hasTyping := tx.Metadata.Float("typing_speed")
	mouse, hasMouse := tx.Metadata.Float("mouse_velocity")
	autofill, hasAutofill := tx.Metadata.Bool("autofill_used")
	if !hasTyping && !hasMouse && !hasAutofill {
		return nil
	}

	samples, err := a.store.BiometricSamples(ctx, tx.AccountID, biometricBaseline)
	if err != nil {
		return err
	}
	out["biometric_sample_count"] = ledger.Number(float64(len(samples)))
	if len(samples) < minBiometricSample {
		return nil
	}

	zscore := func(current float64, history []float64) (float64, bool) {
		mu := mean(history)
		sd := stddev(history, mu)
		if sd == 0 {
			return 0, false
		}
		return math.Abs(current-mu) / sd, true
	}

	deviated := false
	if hasTyping {
		hist := make([]float64, len(samples))
		for i, s := range samples {
			hist[i] = s.TypingSpeed
		}
		if z, ok := zscore(typing, hist); ok {
			out["typing_speed_zscore"] = ledger.Number(z)
			deviated = deviated || z >= a.cfg.BiometricZThreshold
		}
	}
	if hasMouse {
		hist := make([]float64, len(samples))
		for i, s := range samples {
			hist[i] = s.MouseVelocity
		}
		if z, ok := zscore(mouse, hist); ok {
			out["mouse_velocity_zscore"] = ledger.Number(z)
			deviated = deviated || z >= a.cfg.BiometricZThreshold
		}
	}
	out["behavioral_deviation"] = ledger.Bool(deviated)

	// An inverted autofill habit is a strong not-the-owner tell.
	if hasAutofill {
		used := 0
		for _, s := range samples {
			if s.AutofillUsed {
				used++
			}
		}
		rate := float64(used) / float64(len(samples))
		flip := (rate >= 0.8 && !autofill) || (rate <= 0.2 && autofill)
		out["autofill_flip"] = ledger.Bool(flip)
	}
	return nil
}
