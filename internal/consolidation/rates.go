package consolidation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

// SetExchangeRate stores the rate multiplying amounts in from to yield
// amounts in to, effective on date. Setting the same (pair, date) again
// overwrites.
func (s *Service) SetExchangeRate(actor model.Actor, from, to string, date time.Time, rate decimal.Decimal) error {
	if len(from) != 3 || len(to) != 3 {
		return apperr.Validation("currency codes must be 3 letters, got %q and %q", from, to)
	}
	if from == to {
		return apperr.Validation("from and to currency are both %q", from)
	}
	if !rate.IsPositive() {
		return apperr.Validation("exchange rate must be positive, got %s", rate)
	}

	_, err := s.db.Conn().Exec(
		`INSERT INTO exchange_rates (from_currency, to_currency, rate_date, rate)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(from_currency, to_currency, rate_date) DO UPDATE SET rate = excluded.rate`,
		from, to, date.Format(dateLayout), rate.String())
	if err != nil {
		return fmt.Errorf("storing exchange rate: %w", err)
	}

	s.audit.RecordDirect(model.AuditEntry{
		TenantID:   actor.TenantID,
		Action:     "rate.set",
		EntityType: "exchange_rate",
		TargetID:   from + "/" + to,
		ActorID:    actor.UserID,
		Details:    fmt.Sprintf("%s on %s", rate, date.Format(dateLayout)),
	})
	return nil
}

// rateOn returns the most recent stored rate on or before the given
// date for the currency pair.
func (s *Service) rateOn(from, to string, on time.Time) (decimal.Decimal, error) {
	var raw string
	err := s.db.Conn().QueryRow(
		`SELECT rate FROM exchange_rates
		 WHERE from_currency = ? AND to_currency = ? AND rate_date <= ?
		 ORDER BY rate_date DESC LIMIT 1`,
		from, to, on.Format(dateLayout)).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, apperr.Validation(
			"no exchange rate from %s to %s on or before %s", from, to, on.Format(dateLayout))
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("looking up exchange rate: %w", err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing exchange rate: %w", err)
	}
	return rate, nil
}
