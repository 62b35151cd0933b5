// Package consolidation merges member entities' ledgers into a single
// consolidated trial balance per period, applying the ownership method
// of each member and cancelling intercompany balances with categorized
// elimination entries.
package consolidation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/id"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/reporting"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Service runs and stores consolidations. Runs for the same
// (consolidated entity, period) are serialized by a per-key lock;
// re-running supersedes the prior snapshot.
type Service struct {
	db    *database.DB
	audit *audit.Recorder
	reg   *registry.Service
	log   zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(db *database.DB, rec *audit.Recorder, reg *registry.Service, log zerolog.Logger) *Service {
	return &Service{
		db:    db,
		audit: rec,
		reg:   reg,
		log:   log.With().Str("component", "consolidation").Logger(),
		locks: make(map[string]*sync.Mutex),
	}
}

// RunParams describe one consolidation run.
type RunParams struct {
	EntityID string // the consolidated (parent) entity
	Year     int
	Month    int
	Currency string // presentation currency, defaults to the parent's
	Members  []model.ConsolidationMember
}

// Run consolidates the members' ledgers as of the end of the period and
// persists a snapshot. The snapshot moves draft -> processing ->
// completed, or -> error with the failure message; a compute failure is
// recorded on the snapshot and returned.
func (s *Service) Run(actor model.Actor, p RunParams) (*model.Consolidation, error) {
	parent, err := s.reg.GetEntity(actor, p.EntityID)
	if err != nil {
		return nil, err
	}
	if p.Year < 1900 || p.Year > 9999 {
		return nil, apperr.Validation("year %d out of range", p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return nil, apperr.Validation("month %d out of range", p.Month)
	}
	if len(p.Members) == 0 {
		return nil, apperr.Validation("consolidation needs at least one member entity")
	}
	if p.Currency == "" {
		p.Currency = parent.Currency
	}

	members := make([]model.ConsolidationMember, len(p.Members))
	for i, m := range p.Members {
		ent, err := s.reg.GetEntity(actor, m.EntityID)
		if err != nil {
			return nil, err
		}
		if m.Method == "" {
			m.Method = ent.Method
		}
		if !m.Method.Valid() {
			return nil, apperr.Validation("unknown consolidation method %q for entity %s", m.Method, ent.Code)
		}
		if m.Ownership.IsZero() {
			m.Ownership = ent.Ownership
		}
		if m.Ownership.IsNegative() || m.Ownership.GreaterThan(hundred) {
			return nil, apperr.Validation("ownership %s%% for entity %s out of range", m.Ownership, ent.Code)
		}
		members[i] = m
	}

	lock := s.periodLock(p.EntityID, p.Year, p.Month)
	lock.Lock()
	defer lock.Unlock()

	c := &model.Consolidation{
		ID:        id.New(),
		TenantID:  actor.TenantID,
		EntityID:  p.EntityID,
		Year:      p.Year,
		Month:     p.Month,
		Status:    model.ConsolidationDraft,
		Currency:  p.Currency,
		Members:   members,
		StartedAt: time.Now().UTC(),
	}
	if err := s.createSnapshot(actor, c); err != nil {
		return nil, err
	}

	if err := s.setStatus(c, model.ConsolidationProcessing, ""); err != nil {
		return nil, err
	}

	report, elims, err := s.compute(actor, c)
	if err != nil {
		if serr := s.setStatus(c, model.ConsolidationError, err.Error()); serr != nil {
			s.log.Error().Err(serr).Str("consolidation", c.ID).Msg("recording error status failed")
		}
		return c, err
	}

	if err := s.complete(c, report, elims); err != nil {
		return nil, err
	}
	s.log.Info().Str("entity", p.EntityID).Int("year", p.Year).Int("month", p.Month).
		Int("eliminations", len(elims)).Msg("consolidation completed")
	return c, nil
}

// Get loads a period's snapshot with its members and eliminations.
func (s *Service) Get(actor model.Actor, entityID string, year, month int) (*model.Consolidation, error) {
	row := s.db.Conn().QueryRow(
		`SELECT id, tenant_id, entity_id, year, month, status, currency, report, error, started_at, completed_at
		 FROM consolidations WHERE tenant_id = ? AND entity_id = ? AND year = ? AND month = ?`,
		actor.TenantID, entityID, year, month)

	var c model.Consolidation
	var status, started, completed string
	err := row.Scan(&c.ID, &c.TenantID, &c.EntityID, &c.Year, &c.Month,
		&status, &c.Currency, &c.Report, &c.Error, &started, &completed)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("no consolidation for entity %s in %d-%02d", entityID, year, month)
	}
	if err != nil {
		return nil, fmt.Errorf("loading consolidation: %w", err)
	}
	c.Status = model.ConsolidationStatus(status)
	c.StartedAt, _ = time.Parse(time.RFC3339, started)
	if completed != "" {
		c.CompletedAt, _ = time.Parse(time.RFC3339, completed)
	}

	if c.Members, err = s.loadMembers(c.ID); err != nil {
		return nil, err
	}
	if c.Eliminations, err = s.loadEliminations(c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

// memberRow is one account's cumulative activity in a member's ledger,
// in the member's own currency.
type memberRow struct {
	number       string
	name         string
	accType      model.AccountType
	intercompany bool
	debits       decimal.Decimal
	credits      decimal.Decimal
}

func (r memberRow) balance() decimal.Decimal {
	if r.accType.DebitPositive() {
		return r.debits.Sub(r.credits)
	}
	return r.credits.Sub(r.debits)
}

func (s *Service) compute(actor model.Actor, c *model.Consolidation) (*reporting.TrialBalanceReport, []model.EliminationEntry, error) {
	periodEnd := time.Date(c.Year, time.Month(c.Month)+1, 0, 0, 0, 0, 0, time.UTC)

	merged := make(map[string]*memberRow)
	add := func(r memberRow, factor decimal.Decimal) {
		m, ok := merged[r.number]
		if !ok {
			m = &memberRow{number: r.number, name: r.name, accType: r.accType,
				debits: decimal.Zero, credits: decimal.Zero}
			merged[r.number] = m
		}
		m.intercompany = m.intercompany || r.intercompany
		m.debits = m.debits.Add(r.debits.Mul(factor))
		m.credits = m.credits.Add(r.credits.Mul(factor))
	}

	for _, member := range c.Members {
		if member.Method == model.MethodNotConsolidated {
			continue
		}
		ent, err := s.reg.GetEntity(actor, member.EntityID)
		if err != nil {
			return nil, nil, err
		}

		rate := decimal.NewFromInt(1)
		if ent.Currency != c.Currency {
			if rate, err = s.rateOn(ent.Currency, c.Currency, periodEnd); err != nil {
				return nil, nil, err
			}
		}

		rows, err := s.memberBalances(actor, member.EntityID, periodEnd)
		if err != nil {
			return nil, nil, err
		}

		switch member.Method {
		case model.MethodEquity:
			// One net-investment line for the ownership share of the
			// member's net assets; the member's own accounts stay out.
			net := decimal.Zero
			for _, r := range rows {
				switch r.accType {
				case model.AccountTypeAsset:
					net = net.Add(r.balance())
				case model.AccountTypeLiability:
					net = net.Sub(r.balance())
				}
			}
			investment := net.Mul(member.Ownership).Div(hundred).Mul(rate)
			line := memberRow{
				number:  "1600",
				name:    "Investment in " + ent.Name,
				accType: model.AccountTypeAsset,
			}
			if investment.IsNegative() {
				line.credits = investment.Neg()
			} else {
				line.debits = investment
			}
			add(line, decimal.NewFromInt(1))
		case model.MethodProportional:
			factor := rate.Mul(member.Ownership).Div(hundred)
			for _, r := range rows {
				add(r, factor)
			}
		default: // full
			for _, r := range rows {
				add(r, rate)
			}
		}
	}

	elims := s.eliminate(c, merged)

	numbers := make([]string, 0, len(merged))
	for n := range merged {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	report := &reporting.TrialBalanceReport{
		Period: reporting.Period{To: periodEnd.Format(dateLayout)},
		Totals: reporting.TrialBalanceTotals{Debits: decimal.Zero, Credits: decimal.Zero},
	}
	for _, n := range numbers {
		r := merged[n]
		report.Rows = append(report.Rows, reporting.TrialBalanceRow{
			AccountNumber: r.number,
			AccountName:   r.name,
			AccountType:   r.accType,
			Debits:        r.debits,
			Credits:       r.credits,
			Balance:       r.balance(),
		})
		report.Totals.Debits = report.Totals.Debits.Add(r.debits)
		report.Totals.Credits = report.Totals.Credits.Add(r.credits)
	}
	return report, elims, nil
}

// eliminate cancels every intercompany-flagged account in the merged
// ledger, recording one categorized elimination entry per account. The
// cancelling amount is booked on the opposite side, so a symmetric
// receivable/payable pair nets the totals unchanged.
func (s *Service) eliminate(c *model.Consolidation, merged map[string]*memberRow) []model.EliminationEntry {
	var elims []model.EliminationEntry
	for _, r := range merged {
		if !r.intercompany {
			continue
		}
		bal := r.balance()
		if bal.IsZero() {
			continue
		}
		elims = append(elims, model.EliminationEntry{
			ID:              id.New(),
			ConsolidationID: c.ID,
			Category:        categorize(r),
			AccountNumber:   r.number,
			Description:     "Eliminate " + r.name,
			Amount:          bal.Neg(),
		})
		// Book the cancelling amount on whichever side drives the
		// balance to zero.
		toCredits := bal.IsPositive() == r.accType.DebitPositive()
		if toCredits {
			r.credits = r.credits.Add(bal.Abs())
		} else {
			r.debits = r.debits.Add(bal.Abs())
		}
	}
	sort.Slice(elims, func(i, j int) bool { return elims[i].AccountNumber < elims[j].AccountNumber })
	return elims
}

func categorize(r *memberRow) model.EliminationCategory {
	switch {
	case r.number == "1600":
		return model.EliminationInvestment
	case r.accType == model.AccountTypeAsset || r.accType == model.AccountTypeLiability:
		return model.EliminationReceivablePayable
	case r.accType == model.AccountTypeRevenue || r.accType == model.AccountTypeExpense:
		return model.EliminationRevenueExpense
	}
	return model.EliminationOther
}

// memberBalances aggregates one entity's posted lines from inception
// through the period end, keyed by account number.
func (s *Service) memberBalances(actor model.Actor, entityID string, through time.Time) ([]memberRow, error) {
	rows, err := s.db.Conn().Query(
		`SELECT a.number, a.name, a.type, a.intercompany, l.side, l.amount
		 FROM journal_lines l
		 JOIN journal_entries e ON e.id = l.entry_id
		 JOIN accounts a ON a.id = l.account_id
		 WHERE e.tenant_id = ? AND e.entity_id = ? AND e.status != 'draft' AND e.entry_date <= ?`,
		actor.TenantID, entityID, through.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying member ledger: %w", err)
	}
	defer rows.Close()

	byNumber := make(map[string]*memberRow)
	for rows.Next() {
		var number, name, accType, side, amount string
		var ic bool
		if err := rows.Scan(&number, &name, &accType, &ic, &side, &amount); err != nil {
			return nil, fmt.Errorf("scanning member line: %w", err)
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing line amount: %w", err)
		}
		r, ok := byNumber[number]
		if !ok {
			r = &memberRow{number: number, name: name,
				accType: model.AccountType(accType), intercompany: ic,
				debits: decimal.Zero, credits: decimal.Zero}
			byNumber[number] = r
		}
		if model.Side(side) == model.SideDebit {
			r.debits = r.debits.Add(amt)
		} else {
			r.credits = r.credits.Add(amt)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]memberRow, 0, len(byNumber))
	for _, r := range byNumber {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out, nil
}

// createSnapshot inserts the draft snapshot, superseding any previous
// run for the same (entity, period).
func (s *Service) createSnapshot(actor model.Actor, c *model.Consolidation) error {
	return s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`DELETE FROM consolidations WHERE tenant_id = ? AND entity_id = ? AND year = ? AND month = ?`,
			c.TenantID, c.EntityID, c.Year, c.Month); err != nil {
			return fmt.Errorf("superseding prior snapshot: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO consolidations (id, tenant_id, entity_id, year, month, status, currency, started_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.TenantID, c.EntityID, c.Year, c.Month, string(c.Status),
			c.Currency, c.StartedAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		for _, m := range c.Members {
			if _, err := tx.Exec(
				`INSERT INTO consolidation_members (consolidation_id, entity_id, ownership, method)
				 VALUES (?, ?, ?, ?)`,
				c.ID, m.EntityID, m.Ownership.String(), string(m.Method)); err != nil {
				return fmt.Errorf("inserting member: %w", err)
			}
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   c.TenantID,
			Action:     "consolidation.run",
			EntityType: "consolidation",
			TargetID:   c.ID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("%d-%02d, %d members", c.Year, c.Month, len(c.Members)),
		})
		return nil
	})
}

func (s *Service) setStatus(c *model.Consolidation, status model.ConsolidationStatus, errMsg string) error {
	completed := ""
	if status == model.ConsolidationCompleted || status == model.ConsolidationError {
		c.CompletedAt = time.Now().UTC()
		completed = c.CompletedAt.Format(time.RFC3339)
	}
	_, err := s.db.Conn().Exec(
		`UPDATE consolidations SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), errMsg, completed, c.ID)
	if err != nil {
		return fmt.Errorf("updating snapshot status: %w", err)
	}
	c.Status = status
	c.Error = errMsg
	return nil
}

func (s *Service) complete(c *model.Consolidation, report *reporting.TrialBalanceReport, elims []model.EliminationEntry) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	err = s.db.WithTx(func(tx *sql.Tx) error {
		for _, e := range elims {
			if _, err := tx.Exec(
				`INSERT INTO elimination_entries
				 (id, consolidation_id, category, account_number, description, amount, related_entity_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.ConsolidationID, string(e.Category), e.AccountNumber,
				e.Description, e.Amount.String(), e.RelatedEntityID); err != nil {
				return fmt.Errorf("inserting elimination: %w", err)
			}
		}
		c.CompletedAt = time.Now().UTC()
		if _, err := tx.Exec(
			`UPDATE consolidations SET status = ?, report = ?, completed_at = ? WHERE id = ?`,
			string(model.ConsolidationCompleted), string(raw),
			c.CompletedAt.Format(time.RFC3339), c.ID); err != nil {
			return fmt.Errorf("completing snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.Status = model.ConsolidationCompleted
	c.Report = string(raw)
	c.Eliminations = elims
	return nil
}

func (s *Service) loadMembers(consolidationID string) ([]model.ConsolidationMember, error) {
	rows, err := s.db.Conn().Query(
		`SELECT entity_id, ownership, method FROM consolidation_members WHERE consolidation_id = ?`,
		consolidationID)
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}
	defer rows.Close()

	var members []model.ConsolidationMember
	for rows.Next() {
		var m model.ConsolidationMember
		var ownership, method string
		if err := rows.Scan(&m.EntityID, &ownership, &method); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		if m.Ownership, err = decimal.NewFromString(ownership); err != nil {
			return nil, fmt.Errorf("parsing ownership: %w", err)
		}
		m.Method = model.ConsolidationMethod(method)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Service) loadEliminations(consolidationID string) ([]model.EliminationEntry, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, category, account_number, description, amount, related_entity_id
		 FROM elimination_entries WHERE consolidation_id = ? ORDER BY account_number`,
		consolidationID)
	if err != nil {
		return nil, fmt.Errorf("loading eliminations: %w", err)
	}
	defer rows.Close()

	var elims []model.EliminationEntry
	for rows.Next() {
		var e model.EliminationEntry
		var category, amount string
		if err := rows.Scan(&e.ID, &category, &e.AccountNumber, &e.Description, &amount, &e.RelatedEntityID); err != nil {
			return nil, fmt.Errorf("scanning elimination: %w", err)
		}
		e.ConsolidationID = consolidationID
		e.Category = model.EliminationCategory(category)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing elimination amount: %w", err)
		}
		elims = append(elims, e)
	}
	return elims, rows.Err()
}

func (s *Service) periodLock(entityID string, year, month int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d-%02d", entityID, year, month)
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
