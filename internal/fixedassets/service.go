// Package fixedassets tracks depreciable assets and posts their
// periodic depreciation through the journal engine, so account
// balances only ever move through the single posting path.
package fixedassets

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/id"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/journal"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

const dateLayout = "2006-01-02"

// Default posting accounts from the standard chart.
const (
	DefaultExpenseAccount     = "5500"
	DefaultAccumulatedAccount = "1590"
)

type Service struct {
	db      *database.DB
	audit   *audit.Recorder
	reg     *registry.Service
	journal *journal.Service
	log     zerolog.Logger
}

func NewService(db *database.DB, rec *audit.Recorder, reg *registry.Service, jrn *journal.Service, log zerolog.Logger) *Service {
	return &Service{
		db:      db,
		audit:   rec,
		reg:     reg,
		journal: jrn,
		log:     log.With().Str("component", "fixedassets").Logger(),
	}
}

// AssetParams describe a new depreciable asset.
type AssetParams struct {
	EntityID         string
	Name             string
	AcquisitionCost  decimal.Decimal
	AcquiredAt       time.Time
	Method           model.DepreciationMethod
	UsefulLifeMonths int
	SalvageValue     decimal.Decimal
	// Posting accounts; default to the standard chart's depreciation
	// expense and accumulated depreciation numbers.
	ExpenseAccount     string
	AccumulatedAccount string
}

// CreateAsset registers an asset at its acquisition cost. Both posting
// accounts must already exist in the entity's ledger.
func (s *Service) CreateAsset(actor model.Actor, p AssetParams) (*model.FixedAsset, error) {
	if _, err := s.reg.GetEntity(actor, p.EntityID); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, apperr.Validation("asset name is required")
	}
	if !p.AcquisitionCost.IsPositive() {
		return nil, apperr.Validation("acquisition cost must be positive, got %s", p.AcquisitionCost)
	}
	if p.AcquiredAt.IsZero() {
		return nil, apperr.Validation("acquisition date is required")
	}
	if p.Method == "" {
		p.Method = model.DepreciationStraightLine
	}
	if !p.Method.Valid() {
		return nil, apperr.Validation("unknown depreciation method %q", p.Method)
	}
	if p.UsefulLifeMonths <= 0 {
		return nil, apperr.Validation("useful life must be positive, got %d months", p.UsefulLifeMonths)
	}
	if p.SalvageValue.IsNegative() {
		return nil, apperr.Validation("salvage value cannot be negative, got %s", p.SalvageValue)
	}
	if p.SalvageValue.GreaterThan(p.AcquisitionCost) {
		return nil, apperr.Validation("salvage value %s exceeds acquisition cost %s", p.SalvageValue, p.AcquisitionCost)
	}
	if p.ExpenseAccount == "" {
		p.ExpenseAccount = DefaultExpenseAccount
	}
	if p.AccumulatedAccount == "" {
		p.AccumulatedAccount = DefaultAccumulatedAccount
	}
	for _, number := range []string{p.ExpenseAccount, p.AccumulatedAccount} {
		if _, err := s.reg.GetAccountByNumber(actor, p.EntityID, number); err != nil {
			return nil, err
		}
	}

	a := &model.FixedAsset{
		ID:                 id.New(),
		TenantID:           actor.TenantID,
		EntityID:           p.EntityID,
		Name:               p.Name,
		AcquisitionCost:    p.AcquisitionCost,
		AcquiredAt:         p.AcquiredAt,
		Method:             p.Method,
		UsefulLifeMonths:   p.UsefulLifeMonths,
		SalvageValue:       p.SalvageValue,
		BookValue:          p.AcquisitionCost,
		ExpenseAccount:     p.ExpenseAccount,
		AccumulatedAccount: p.AccumulatedAccount,
		CreatedAt:          time.Now().UTC(),
	}
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO fixed_assets
			 (id, tenant_id, entity_id, name, acquisition_cost, acquired_at, method,
			  useful_life_months, salvage_value, book_value, expense_account,
			  accumulated_account, disposed, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			a.ID, a.TenantID, a.EntityID, a.Name, a.AcquisitionCost.String(),
			a.AcquiredAt.Format(dateLayout), string(a.Method), a.UsefulLifeMonths,
			a.SalvageValue.String(), a.BookValue.String(), a.ExpenseAccount,
			a.AccumulatedAccount, a.CreatedAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting asset: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "asset.create",
			EntityType: "fixed_asset",
			TargetID:   a.ID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("%s, cost %s", a.Name, a.AcquisitionCost),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CalculateDepreciation returns the cumulative depreciation of a as of
// the given date, full-month convention: a month counts once the
// calendar month is reached, capped at cost minus salvage. Methods
// other than straight-line are declared but not implemented and fail
// rather than approximate.
func CalculateDepreciation(a *model.FixedAsset, asOf time.Time) (decimal.Decimal, error) {
	switch a.Method {
	case model.DepreciationStraightLine:
	case model.DepreciationDecliningBalance, model.DepreciationUnitsOfProduction:
		return decimal.Zero, apperr.Validation("depreciation method %q is not implemented", a.Method)
	default:
		return decimal.Zero, apperr.Validation("unknown depreciation method %q", a.Method)
	}

	elapsed := (asOf.Year()-a.AcquiredAt.Year())*12 + int(asOf.Month()) - int(a.AcquiredAt.Month())
	if elapsed <= 0 {
		return decimal.Zero, nil
	}
	depreciable := a.AcquisitionCost.Sub(a.SalvageValue)
	if elapsed >= a.UsefulLifeMonths {
		return depreciable, nil
	}
	total := depreciable.
		Mul(decimal.NewFromInt(int64(elapsed))).
		Div(decimal.NewFromInt(int64(a.UsefulLifeMonths))).
		Round(2)
	if total.GreaterThan(depreciable) {
		total = depreciable
	}
	return total, nil
}

// RunMonthlyDepreciation posts one depreciation entry per non-disposed
// asset of the entity for asOf's calendar month. Each asset's effect
// goes through the journal engine (debit expense, credit accumulated
// depreciation); the asset row only mirrors the resulting book value.
// Already-processed (asset, period) pairs are skipped, so the run is
// idempotent. Returns the number of entries posted.
func (s *Service) RunMonthlyDepreciation(actor model.Actor, entityID string, asOf time.Time) (int, error) {
	if _, err := s.reg.GetEntity(actor, entityID); err != nil {
		return 0, err
	}
	assets, err := s.ListAssets(actor, entityID)
	if err != nil {
		return 0, err
	}

	year, month := asOf.Year(), int(asOf.Month())
	periodEnd := time.Date(year, asOf.Month()+1, 0, 0, 0, 0, 0, time.UTC)

	posted := 0
	for i := range assets {
		a := &assets[i]
		if a.Disposed {
			continue
		}
		done, err := s.hasScheduleEntry(a.ID, year, month)
		if err != nil {
			return posted, err
		}
		if done {
			continue
		}

		target, err := CalculateDepreciation(a, periodEnd)
		if err != nil {
			return posted, fmt.Errorf("asset %s: %w", a.Name, err)
		}
		recorded := a.AcquisitionCost.Sub(a.BookValue)
		amount := target.Sub(recorded)
		if !amount.IsPositive() {
			continue
		}
		// Never depreciate past salvage.
		if floor := a.BookValue.Sub(a.SalvageValue); amount.GreaterThan(floor) {
			amount = floor
		}

		entry, err := s.journal.PostEntry(actor, journal.PostParams{
			EntityID:    entityID,
			Date:        periodEnd,
			Description: fmt.Sprintf("Depreciation %d-%02d: %s", year, month, a.Name),
			Lines: []journal.LineInput{
				{AccountNumber: a.ExpenseAccount, Side: model.SideDebit, Amount: amount},
				{AccountNumber: a.AccumulatedAccount, Side: model.SideCredit, Amount: amount},
			},
		})
		if err != nil {
			return posted, fmt.Errorf("posting depreciation for %s: %w", a.Name, err)
		}

		if err := s.recordDepreciation(actor, a, year, month, amount, entry.ID); err != nil {
			return posted, err
		}
		posted++
	}
	s.log.Info().Str("entity", entityID).Int("year", year).Int("month", month).
		Int("posted", posted).Msg("monthly depreciation run")
	return posted, nil
}

// DisposeAsset marks an asset disposed. Disposal is terminal: disposed
// assets are excluded from depreciation runs and reject further
// mutation.
func (s *Service) DisposeAsset(actor model.Actor, assetID string, disposedAt time.Time) (*model.FixedAsset, error) {
	a, err := s.GetAsset(actor, assetID)
	if err != nil {
		return nil, err
	}
	if a.Disposed {
		return nil, apperr.Conflict("asset %s is already disposed", a.Name)
	}
	if disposedAt.IsZero() {
		disposedAt = time.Now().UTC()
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`UPDATE fixed_assets SET disposed = 1, disposed_at = ? WHERE id = ?`,
			disposedAt.Format(dateLayout), a.ID); err != nil {
			return fmt.Errorf("disposing asset: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "asset.dispose",
			EntityType: "fixed_asset",
			TargetID:   a.ID,
			ActorID:    actor.UserID,
			Details:    a.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.Disposed = true
	a.DisposedAt = disposedAt
	return a, nil
}

func (s *Service) GetAsset(actor model.Actor, assetID string) (*model.FixedAsset, error) {
	row := s.db.Conn().QueryRow(selectAsset+` WHERE tenant_id = ? AND id = ?`,
		actor.TenantID, assetID)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("asset %s not found", assetID)
	}
	return a, err
}

func (s *Service) ListAssets(actor model.Actor, entityID string) ([]model.FixedAsset, error) {
	rows, err := s.db.Conn().Query(selectAsset+` WHERE tenant_id = ? AND entity_id = ? ORDER BY name`,
		actor.TenantID, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []model.FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// Schedule returns an asset's recorded depreciation entries in period
// order.
func (s *Service) Schedule(actor model.Actor, assetID string) ([]model.DepreciationEntry, error) {
	if _, err := s.GetAsset(actor, assetID); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().Query(
		`SELECT id, asset_id, year, month, amount, book_value_after, journal_entry_id, created_at
		 FROM depreciation_schedule WHERE asset_id = ? ORDER BY year, month`,
		assetID)
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	defer rows.Close()

	var entries []model.DepreciationEntry
	for rows.Next() {
		var e model.DepreciationEntry
		var amount, after, created string
		if err := rows.Scan(&e.ID, &e.AssetID, &e.Year, &e.Month, &amount, &after, &e.JournalEntryID, &created); err != nil {
			return nil, fmt.Errorf("scanning schedule entry: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing amount: %w", err)
		}
		if e.BookValueAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("parsing book value: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Service) hasScheduleEntry(assetID string, year, month int) (bool, error) {
	var n int
	err := s.db.Conn().QueryRow(
		`SELECT COUNT(*) FROM depreciation_schedule WHERE asset_id = ? AND year = ? AND month = ?`,
		assetID, year, month).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking schedule: %w", err)
	}
	return n > 0, nil
}

func (s *Service) recordDepreciation(actor model.Actor, a *model.FixedAsset, year, month int, amount decimal.Decimal, entryID string) error {
	after := a.BookValue.Sub(amount)
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO depreciation_schedule
			 (id, asset_id, year, month, amount, book_value_after, journal_entry_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id.New(), a.ID, year, month, amount.String(), after.String(),
			entryID, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting schedule entry: %w", err)
		}
		if _, err := tx.Exec(
			`UPDATE fixed_assets SET book_value = ? WHERE id = ?`,
			after.String(), a.ID); err != nil {
			return fmt.Errorf("updating book value: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "asset.depreciate",
			EntityType: "fixed_asset",
			TargetID:   a.ID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("%d-%02d: %s", year, month, amount),
		})
		return nil
	})
	if err != nil {
		return err
	}
	a.BookValue = after
	return nil
}

const selectAsset = `SELECT id, tenant_id, entity_id, name, acquisition_cost, acquired_at,
	method, useful_life_months, salvage_value, book_value, expense_account,
	accumulated_account, disposed, disposed_at, created_at
	FROM fixed_assets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*model.FixedAsset, error) {
	var a model.FixedAsset
	var cost, salvage, book, method, acquired, disposedAt, created string
	err := row.Scan(&a.ID, &a.TenantID, &a.EntityID, &a.Name, &cost, &acquired,
		&method, &a.UsefulLifeMonths, &salvage, &book, &a.ExpenseAccount,
		&a.AccumulatedAccount, &a.Disposed, &disposedAt, &created)
	if err != nil {
		return nil, err
	}
	a.Method = model.DepreciationMethod(method)
	if a.AcquisitionCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parsing acquisition cost: %w", err)
	}
	if a.SalvageValue, err = decimal.NewFromString(salvage); err != nil {
		return nil, fmt.Errorf("parsing salvage value: %w", err)
	}
	if a.BookValue, err = decimal.NewFromString(book); err != nil {
		return nil, fmt.Errorf("parsing book value: %w", err)
	}
	a.AcquiredAt, _ = time.Parse(dateLayout, acquired)
	if disposedAt != "" {
		a.DisposedAt, _ = time.Parse(dateLayout, disposedAt)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &a, nil
}
