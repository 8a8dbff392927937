package features

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/sentinel/internal/ledger"
)

// Relationship age buckets in days since the last payment.
const (
	relationshipActiveDays   = 30
	relationshipRecentDays   = 90
	relationshipInactiveDays = 180
)

// relationshipSignals classifies the account's history with the current
// counterparty and computes the composite social-trust score.
//
// Keys: is_new_counterparty, relationship_status, days_since_last_payment,
// counterparty_payment_count, amount_consistency_cv, social_trust_score.
func (a *Assembler) relationshipSignals(ctx context.Context, tx *ledger.Transaction, now time.Time) (map[string]ledger.Value, error) {
	out := make(map[string]ledger.Value)
	if tx.CounterpartyID == "" {
		return out, nil
	}

	seen, err := a.store.HasTransactionWith(ctx, tx.AccountID, tx.CounterpartyID)
	if err != nil {
		return nil, err
	}
	out["is_new_counterparty"] = ledger.Bool(!seen)

	// Payment history between this pair, full depth.
	history, err := a.store.AccountTransactions(ctx, tx.AccountID, time.Time{})
	if err != nil {
		return nil, err
	}
	var payments []*ledger.Transaction
	for _, h := range history {
		if h.ID != tx.ID && h.CounterpartyID == tx.CounterpartyID && h.Outbound() {
			payments = append(payments, h)
		}
	}

	status := "new"
	daysSinceLast := -1.0
	if len(payments) > 0 {
		last := payments[len(payments)-1].Timestamp
		daysSinceLast = now.Sub(last).Hours() / 24
		switch {
		case daysSinceLast < relationshipActiveDays:
			status = "active"
		case daysSinceLast < relationshipRecentDays:
			status = "recent"
		case daysSinceLast < float64(a.cfg.DormantDays):
			status = "inactive"
		default:
			// Dormant relationships that suddenly reactivate are a classic
			// compromise pattern.
			status = "dormant"
		}
		out["days_since_last_payment"] = ledger.Number(daysSinceLast)
	}
	out["relationship_status"] = ledger.String(status)
	out["counterparty_payment_count"] = ledger.Number(float64(len(payments)))

	// Composite trust, five fixed-weight sub-factors totaling 100:
	//   registration/verification  25
	//   history depth and recency  25
	//   contact-list presence      15
	//   social signals             10
	//   amount consistency         25
	score := 0.0

	var ben *ledger.Beneficiary
	b, err := a.store.GetBeneficiary(ctx, tx.CounterpartyID)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		ben = b
	}
	if ben != nil {
		score += 10
		if ben.Verified {
			score += 15
		}
		if ben.InContacts {
			score += 15
		}
		if ben.SocialLinked {
			score += 10
		}
	}

	switch {
	case len(payments) >= 10:
		score += 15
	case len(payments) >= 3:
		score += 10
	case len(payments) > 0:
		score += 5
	}
	if daysSinceLast >= 0 && daysSinceLast < relationshipActiveDays {
		score += 10
	}

	if len(payments) >= 3 {
		amounts := make([]float64, len(payments))
		for i, p := range payments {
			amounts[i] = p.Amount
		}
		mu := mean(amounts)
		if mu > 0 {
			cv := stddev(amounts, mu) / mu
			out["amount_consistency_cv"] = ledger.Number(cv)
			switch {
			case cv < 0.3:
				score += 25
			case cv < 0.6:
				score += 15
			case cv < 1.0:
				score += 8
			}
		}
	}

	out["social_trust_score"] = ledger.Number(score)
	return out, nil
}
