// Package features assembles the per-transaction evaluation context.
//
// The assembler turns one candidate transaction into a flat map of named
// signals by running independent signal groups against the ledger. Groups
// never depend on each other's results, so they fan out concurrently. A
// group that cannot compute (missing metadata, no history, query budget
// exceeded) contributes nothing; absent signals read as unknown downstream,
// never as zero. A ledger failure is fatal and aborts the evaluation.
package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbd888/sentinel/internal/config"
	"github.com/mbd888/sentinel/internal/ledger"
	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/metrics"
	"github.com/mbd888/sentinel/internal/traces"
)

// Context is the flat signal map produced for one evaluation. It never
// outlives the evaluation that built it.
type Context map[string]ledger.Value

// Str returns the named string signal.
func (c Context) Str(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	return v.Str()
}

// Float returns the named numeric signal.
func (c Context) Float(key string) (float64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Bool returns the named boolean signal.
func (c Context) Bool(key string) (bool, bool) {
	v, ok := c[key]
	if !ok {
		return false, false
	}
	return v.Bool()
}

// Flag reports whether the named boolean signal is present and true.
func (c Context) Flag(key string) bool {
	b, ok := c.Bool(key)
	return ok && b
}

// Has reports whether the signal is present and non-null.
func (c Context) Has(key string) bool {
	v, ok := c[key]
	return ok && !v.IsNull()
}

// Config carries the signal tunables. Values are read-only after
// construction so one Assembler is safe for concurrent evaluations.
type Config struct {
	GroupTimeout         time.Duration
	DeviationSentinel    float64
	SmallDepositMax      float64
	BiometricZThreshold  float64
	MaxTravelSpeedKMH    float64
	MinTravelDistanceKM  float64
	PrimaryCountryShare  float64
	OddHoursStart        int
	OddHoursEnd          int
	DormantDays          int
	NewBeneficiaryWindow time.Duration
}

// ConfigFrom maps the application configuration onto signal tunables.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		GroupTimeout:         cfg.SignalGroupTimeout,
		DeviationSentinel:    cfg.DeviationSentinel,
		SmallDepositMax:      cfg.SmallDepositMax,
		BiometricZThreshold:  cfg.BiometricZThreshold,
		MaxTravelSpeedKMH:    cfg.MaxTravelSpeedKMH,
		MinTravelDistanceKM:  cfg.MinTravelDistanceKM,
		PrimaryCountryShare:  cfg.PrimaryCountryShare,
		OddHoursStart:        cfg.OddHoursStart,
		OddHoursEnd:          cfg.OddHoursEnd,
		DormantDays:          cfg.DormantRelationship,
		NewBeneficiaryWindow: cfg.NewBeneficiaryWindow,
	}
}

// DefaultConfig returns the documented default tunables.
func DefaultConfig() Config {
	return Config{
		GroupTimeout:         config.DefaultSignalGroupTimeout,
		DeviationSentinel:    config.DefaultDeviationSentinel,
		SmallDepositMax:      config.DefaultSmallDepositMax,
		BiometricZThreshold:  config.DefaultBiometricZThreshold,
		MaxTravelSpeedKMH:    config.DefaultMaxTravelSpeedKMH,
		MinTravelDistanceKM:  config.DefaultMinTravelDistanceKM,
		PrimaryCountryShare:  config.DefaultPrimaryCountryShare,
		OddHoursStart:        config.DefaultOddHoursStart,
		OddHoursEnd:          config.DefaultOddHoursEnd,
		DormantDays:          config.DefaultDormantRelationship,
		NewBeneficiaryWindow: config.DefaultNewBeneficiaryWindow,
	}
}

// signalGroup is one independently computable slice of the context.
type signalGroup struct {
	name string
	run  func(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error)
}

// Assembler builds evaluation contexts from the ledger.
type Assembler struct {
	store  ledger.Store
	cfg    Config
	groups []signalGroup
}

// NewAssembler creates an assembler over the given ledger.
func NewAssembler(store ledger.Store, cfg Config) *Assembler {
	a := &Assembler{store: store, cfg: cfg}
	a.groups = []signalGroup{
		{"velocity", a.velocitySignals},
		{"money_mule", a.muleSignals},
		{"beneficiary", a.beneficiarySignals},
		{"account_takeover", a.takeoverSignals},
		{"odd_hours", a.oddHoursSignals},
		{"geo", a.geoSignals},
		{"screening", a.screeningSignals},
		{"relationship", a.relationshipSignals},
		{"account_history", a.accountHistorySignals},
		{"checks", a.checkSignals},
	}
	return a
}

// GroupNames lists the signal groups in execution order.
func (a *Assembler) GroupNames() []string {
	names := make([]string, len(a.groups))
	for i, g := range a.groups {
		names[i] = g.name
	}
	return names
}

type groupResult struct {
	name    string
	signals map[string]ledger.Value
	err     error
}

// Build assembles the full context for one transaction. Groups run
// concurrently, each under its own query budget. A group that exceeds its
// budget degrades to absent signals; any other ledger error aborts the
// build.
func (a *Assembler) Build(ctx context.Context, tx *ledger.Transaction) (Context, error) {
	ctx, span := traces.StartSpan(ctx, "features.Build", traces.TransactionID(tx.ID))
	defer span.End()

	now := tx.Timestamp
	results := make(chan groupResult, len(a.groups))

	var wg sync.WaitGroup
	for _, g := range a.groups {
		wg.Add(1)
		go func(g signalGroup) {
			defer wg.Done()
			gctx, cancel := context.WithTimeout(ctx, a.cfg.GroupTimeout)
			defer cancel()

			timer := prometheus.NewTimer(metrics.SignalGroupDuration.WithLabelValues(g.name))
			signals, err := g.run(gctx, tx, now)
			timer.ObserveDuration()

			results <- groupResult{name: g.name, signals: signals, err: err}
		}(g)
	}
	wg.Wait()
	close(results)

	log := logging.L(ctx)
	out := make(Context)
	for res := range results {
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				// Budget exceeded: this group's signals stay absent.
				metrics.SignalGroupTimeoutsTotal.WithLabelValues(res.name).Inc()
				log.Warn("signal group exceeded query budget, degrading",
					"group", res.name)
				continue
			}
			return nil, fmt.Errorf("assemble %s signals: %w", res.name, res.err)
		}
		for k, v := range res.signals {
			out[k] = v
		}
	}
	return out, nil
}

// statistics helpers shared by signal groups

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64, mu float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var variance float64
	for _, x := range xs {
		d := x - mu
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}
