// Package journal validates and atomically posts and reverses balanced
// multi-line entries. It owns all balance mutation: header, lines,
// balance deltas and the audit record commit or roll back as one unit.
package journal

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
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

const dateLayout = "2006-01-02"

// Options controls posting behavior.
type Options struct {
	// AutoProvisionAccounts creates accounts for unknown numbers during
	// posting instead of rejecting. Off by default; each provisioned
	// account is audited separately.
	AutoProvisionAccounts bool
}

// Service is the journal engine.
type Service struct {
	db       *database.DB
	audit    *audit.Recorder
	registry *registry.Service
	opts     Options
	log      zerolog.Logger
}

// NewService creates a journal Service.
func NewService(db *database.DB, rec *audit.Recorder, reg *registry.Service, opts Options, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		audit:    rec,
		registry: reg,
		opts:     opts,
		log:      log.With().Str("component", "journal").Logger(),
	}
}

// PostParams holds inputs for PostEntry.
type PostParams struct {
	EntityID     string
	Date         time.Time
	Description  string
	Currency     string          // defaults to the entity currency
	ExchangeRate decimal.Decimal // defaults to 1
	Lines        []LineInput
}

// PostEntry validates and posts a balanced entry. On success the
// header, one line per input, the signed balance deltas and one audit
// record are committed together; on any failure nothing is visible.
func (s *Service) PostEntry(actor model.Actor, p PostParams) (*model.JournalEntry, error) {
	entity, err := s.registry.GetEntity(actor, p.EntityID)
	if err != nil {
		return nil, err
	}
	if p.Date.IsZero() {
		return nil, apperr.Validation("entry date is required")
	}
	if err := ValidateLines(p.Lines); err != nil {
		return nil, err
	}
	if err := CheckBalanced(p.Lines); err != nil {
		return nil, err
	}

	if p.Currency == "" {
		p.Currency = entity.Currency
	}
	if p.ExchangeRate.IsZero() {
		p.ExchangeRate = decimal.NewFromInt(1)
	}

	debits, _ := SumSides(p.Lines)
	entry := &model.JournalEntry{
		ID:           id.New(),
		TenantID:     actor.TenantID,
		EntityID:     p.EntityID,
		Date:         p.Date,
		Year:         p.Date.Year(),
		Month:        int(p.Date.Month()),
		Description:  p.Description,
		Status:       model.StatusPosted,
		Total:        debits,
		Currency:     p.Currency,
		ExchangeRate: p.ExchangeRate,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		accounts, err := s.resolveAccounts(tx, actor, entity, p.Lines)
		if err != nil {
			return err
		}

		seq, err := nextSeq(tx, p.EntityID, entry.Year, entry.Month)
		if err != nil {
			return err
		}
		entry.EntryNumber = id.FormatEntryNumber(entry.Year, entry.Month, seq)

		if err := insertEntry(tx, entry); err != nil {
			return err
		}

		for i, l := range p.Lines {
			acct := accounts[l.AccountNumber]
			line := model.TransactionLine{
				ID:              id.New(),
				EntryID:         entry.ID,
				LineNo:          i + 1,
				AccountID:       acct.ID,
				AccountNumber:   acct.Number,
				Side:            l.Side,
				Amount:          l.Amount,
				Description:     l.Description,
				RelatedEntityID: l.RelatedEntityID,
				EliminationRef:  l.EliminationRef,
			}
			if err := insertLine(tx, line); err != nil {
				return err
			}
			if err := registry.ApplyBalanceDelta(tx, acct.ID,
				model.SignedDelta(acct.Type, l.Side, l.Amount)); err != nil {
				return err
			}
			entry.Lines = append(entry.Lines, line)
		}

		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "journal.post",
			EntityType: "journal_entry",
			TargetID:   entry.ID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("number=%s total=%s", entry.EntryNumber, entry.Total.StringFixed(2)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("entry", entry.EntryNumber).Str("entity", entity.Code).Msg("entry posted")
	return entry, nil
}

// ReverseEntry creates the mirrored correction of a posted entry:
// debit and credit sides swap, balances receive the inverse deltas, and
// the original is marked reversed with back references both ways.
// Reversals themselves cannot be reversed.
func (s *Service) ReverseEntry(actor model.Actor, entryID string) (*model.JournalEntry, error) {
	orig, err := s.GetEntry(actor, entryID)
	if err != nil {
		return nil, err
	}
	if orig.Status == model.StatusReversed {
		return nil, apperr.Conflict("entry %s is already reversed", orig.EntryNumber)
	}
	if orig.ReversalOf != "" {
		return nil, apperr.Conflict("entry %s is a reversal and cannot be reversed", orig.EntryNumber)
	}
	if orig.Status != model.StatusPosted {
		return nil, apperr.Conflict("entry %s is not posted", orig.EntryNumber)
	}

	rev := &model.JournalEntry{
		ID:           id.New(),
		TenantID:     orig.TenantID,
		EntityID:     orig.EntityID,
		Date:         orig.Date,
		Year:         orig.Year,
		Month:        orig.Month,
		Description:  "Reversal of " + orig.EntryNumber + ": " + orig.Description,
		Status:       model.StatusPosted,
		Total:        orig.Total,
		Currency:     orig.Currency,
		ExchangeRate: orig.ExchangeRate,
		ReversalOf:   orig.ID,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		seq, err := nextSeq(tx, orig.EntityID, orig.Year, orig.Month)
		if err != nil {
			return err
		}
		rev.EntryNumber = id.FormatEntryNumber(rev.Year, rev.Month, seq)

		if err := insertEntry(tx, rev); err != nil {
			return err
		}

		for _, l := range orig.Lines {
			acct, err := accountByID(tx, l.AccountID)
			if err != nil {
				return err
			}
			mirrored := model.TransactionLine{
				ID:              id.New(),
				EntryID:         rev.ID,
				LineNo:          l.LineNo,
				AccountID:       l.AccountID,
				AccountNumber:   l.AccountNumber,
				Side:            oppositeSide(l.Side),
				Amount:          l.Amount,
				Description:     l.Description,
				RelatedEntityID: l.RelatedEntityID,
				EliminationRef:  l.EliminationRef,
			}
			if err := insertLine(tx, mirrored); err != nil {
				return err
			}
			if err := registry.ApplyBalanceDelta(tx, l.AccountID,
				model.SignedDelta(acct.Type, mirrored.Side, mirrored.Amount)); err != nil {
				return err
			}
			rev.Lines = append(rev.Lines, mirrored)
		}

		if _, err := tx.Exec(
			`UPDATE journal_entries SET status = ?, reversed_by = ? WHERE id = ?`,
			string(model.StatusReversed), rev.ID, orig.ID); err != nil {
			return fmt.Errorf("marking entry reversed: %w", err)
		}

		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "journal.reverse",
			EntityType: "journal_entry",
			TargetID:   orig.ID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("original=%s reversal=%s", orig.EntryNumber, rev.EntryNumber),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("original", orig.EntryNumber).Str("reversal", rev.EntryNumber).Msg("entry reversed")
	return rev, nil
}

// GetEntry returns an entry with its lines.
func (s *Service) GetEntry(actor model.Actor, entryID string) (*model.JournalEntry, error) {
	e, err := scanEntry(s.db.Conn().QueryRow(
		entrySelect+` WHERE id = ? AND tenant_id = ?`, entryID, actor.TenantID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("journal entry %s not found", entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	if err := s.loadLines(e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntries returns an entity's entries in a date range, oldest
// first, lines included.
func (s *Service) ListEntries(actor model.Actor, entityID string, from, to time.Time) ([]model.JournalEntry, error) {
	rows, err := s.db.Conn().Query(
		entrySelect+` WHERE entity_id = ? AND tenant_id = ? AND entry_date >= ? AND entry_date <= ?
		 ORDER BY entry_date, entry_number`,
		entityID, actor.TenantID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		if err := s.loadLines(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// resolveAccounts maps line account numbers to live accounts of the
// entity, auto-provisioning unknown numbers only when enabled.
func (s *Service) resolveAccounts(tx *sql.Tx, actor model.Actor, entity *model.Entity, lines []LineInput) (map[string]*model.Account, error) {
	accounts := make(map[string]*model.Account, len(lines))
	for _, l := range lines {
		if _, ok := accounts[l.AccountNumber]; ok {
			continue
		}
		acct, err := accountByNumber(tx, entity.ID, l.AccountNumber)
		if err == sql.ErrNoRows {
			if !s.opts.AutoProvisionAccounts {
				return nil, apperr.Validation("account %s does not exist in entity %s", l.AccountNumber, entity.Code)
			}
			acct, err = s.provisionAccount(tx, actor, entity, l.AccountNumber)
		}
		if err != nil {
			return nil, err
		}
		accounts[l.AccountNumber] = acct
	}
	return accounts, nil
}

func (s *Service) provisionAccount(tx *sql.Tx, actor model.Actor, entity *model.Entity, number string) (*model.Account, error) {
	acct, err := s.registry.CreateAccountTx(tx, actor, registry.AccountParams{
		EntityID: entity.ID,
		Number:   number,
		Name:     "Auto-provisioned " + number,
		Type:     typeForNumber(number),
		Currency: entity.Currency,
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(tx, model.AuditEntry{
		TenantID:   actor.TenantID,
		Action:     "account.autoprovision",
		EntityType: "account",
		TargetID:   acct.ID,
		ActorID:    actor.UserID,
		Details:    "number=" + number,
	})
	s.log.Warn().Str("number", number).Str("entity", entity.Code).Msg("auto-provisioned account during posting")
	return acct, nil
}

// typeForNumber infers an account type from the leading digit, the
// convention the default chart follows.
func typeForNumber(number string) model.AccountType {
	switch {
	case number == "":
		return model.AccountTypeExpense
	case number[0] == '1':
		return model.AccountTypeAsset
	case number[0] == '2':
		return model.AccountTypeLiability
	case number[0] == '3':
		return model.AccountTypeEquity
	case number[0] == '4':
		return model.AccountTypeRevenue
	default:
		return model.AccountTypeExpense
	}
}

// nextSeq bumps the per-(entity, year, month) counter inside the
// posting transaction, so concurrent postings cannot collide.
func nextSeq(tx *sql.Tx, entityID string, year, month int) (int, error) {
	var seq int
	err := tx.QueryRow(
		`INSERT INTO entry_counters (entity_id, year, month, seq) VALUES (?, ?, ?, 1)
		 ON CONFLICT (entity_id, year, month) DO UPDATE SET seq = seq + 1
		 RETURNING seq`,
		entityID, year, month).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocating entry number: %w", err)
	}
	return seq, nil
}

func oppositeSide(s model.Side) model.Side {
	if s == model.SideDebit {
		return model.SideCredit
	}
	return model.SideDebit
}

const entrySelect = `SELECT id, tenant_id, entity_id, entry_number, entry_date, year, month,
	description, status, total, currency, exchange_rate, reversal_of, reversed_by, created_at
	FROM journal_entries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.JournalEntry, error) {
	var e model.JournalEntry
	var date, status, total, rate, createdAt string
	err := row.Scan(&e.ID, &e.TenantID, &e.EntityID, &e.EntryNumber, &date, &e.Year,
		&e.Month, &e.Description, &status, &total, &e.Currency, &rate,
		&e.ReversalOf, &e.ReversedBy, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Date, _ = time.Parse(dateLayout, date)
	e.Status = model.EntryStatus(status)
	if e.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parsing total: %w", err)
	}
	if e.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("parsing exchange rate: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func (s *Service) loadLines(e *model.JournalEntry) error {
	rows, err := s.db.Conn().Query(
		`SELECT l.id, l.entry_id, l.line_no, l.account_id, a.number, l.side, l.amount,
			l.description, l.related_entity_id, l.elimination_ref
		 FROM journal_lines l JOIN accounts a ON a.id = l.account_id
		 WHERE l.entry_id = ? ORDER BY l.line_no`, e.ID)
	if err != nil {
		return fmt.Errorf("querying lines: %w", err)
	}
	defer rows.Close()

	e.Lines = nil
	for rows.Next() {
		var l model.TransactionLine
		var side, amount string
		if err := rows.Scan(&l.ID, &l.EntryID, &l.LineNo, &l.AccountID, &l.AccountNumber,
			&side, &amount, &l.Description, &l.RelatedEntityID, &l.EliminationRef); err != nil {
			return fmt.Errorf("scanning line: %w", err)
		}
		l.Side = model.Side(side)
		if l.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("parsing line amount: %w", err)
		}
		e.Lines = append(e.Lines, l)
	}
	return rows.Err()
}

func insertEntry(tx *sql.Tx, e *model.JournalEntry) error {
	_, err := tx.Exec(
		`INSERT INTO journal_entries (id, tenant_id, entity_id, entry_number, entry_date, year, month,
			description, status, total, currency, exchange_rate, reversal_of, reversed_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.EntityID, e.EntryNumber, e.Date.Format(dateLayout), e.Year, e.Month,
		e.Description, string(e.Status), e.Total.String(), e.Currency, e.ExchangeRate.String(),
		e.ReversalOf, e.ReversedBy, e.CreatedAt.Format(time.RFC3339))
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("entry number %s already exists", e.EntryNumber)
	}
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

func insertLine(tx *sql.Tx, l model.TransactionLine) error {
	_, err := tx.Exec(
		`INSERT INTO journal_lines (id, entry_id, line_no, account_id, side, amount, description, related_entity_id, elimination_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.EntryID, l.LineNo, l.AccountID, string(l.Side), l.Amount.String(),
		l.Description, l.RelatedEntityID, l.EliminationRef)
	if err != nil {
		return fmt.Errorf("inserting line %d: %w", l.LineNo, err)
	}
	return nil
}

func accountByNumber(tx *sql.Tx, entityID, number string) (*model.Account, error) {
	return scanTxAccount(tx.QueryRow(
		`SELECT id, entity_id, number, type, currency FROM accounts WHERE entity_id = ? AND number = ?`,
		entityID, number))
}

func accountByID(tx *sql.Tx, accountID string) (*model.Account, error) {
	a, err := scanTxAccount(tx.QueryRow(
		`SELECT id, entity_id, number, type, currency FROM accounts WHERE id = ?`, accountID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("account %s not found", accountID)
	}
	return a, err
}

func scanTxAccount(row *sql.Row) (*model.Account, error) {
	var a model.Account
	var accType string
	if err := row.Scan(&a.ID, &a.EntityID, &a.Number, &accType, &a.Currency); err != nil {
		return nil, err
	}
	a.Type = model.AccountType(accType)
	return &a, nil
}
