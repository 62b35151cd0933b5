package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/id"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

// AccountParams holds inputs for CreateAccount.
type AccountParams struct {
	EntityID     string
	ChartID      string
	Number       string
	Name         string
	Type         model.AccountType
	Subledger    model.SubledgerType
	ParentID     string
	Intercompany bool
	Currency     string // defaults to the entity currency
}

// CreateAccount creates a live ledger account with a zero balance.
// (entity, number) is unique; number and type are immutable afterwards.
func (s *Service) CreateAccount(actor model.Actor, p AccountParams) (*model.Account, error) {
	if p.Number == "" {
		return nil, apperr.Validation("account number is required")
	}
	if p.Name == "" {
		return nil, apperr.Validation("account name is required")
	}
	if !p.Type.Valid() {
		return nil, apperr.Validation("unknown account type %q", p.Type)
	}

	entity, err := s.GetEntity(actor, p.EntityID)
	if err != nil {
		return nil, err
	}
	if p.Currency == "" {
		p.Currency = entity.Currency
	}
	if p.ParentID != "" {
		parent, err := s.GetAccount(actor, p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.EntityID != p.EntityID {
			return nil, apperr.Validation("parent account %s belongs to another entity", parent.Number)
		}
	}

	a := &model.Account{
		ID:           id.New(),
		TenantID:     actor.TenantID,
		EntityID:     p.EntityID,
		ChartID:      p.ChartID,
		Number:       p.Number,
		Name:         p.Name,
		Type:         p.Type,
		Subledger:    p.Subledger,
		ParentID:     p.ParentID,
		Intercompany: p.Intercompany,
		Currency:     p.Currency,
		Active:       true,
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		return s.insertAccount(tx, actor, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAccountTx creates an account inside the caller's transaction.
// The journal engine uses it for opt-in auto-provisioning; validation
// of entity and parent is the caller's responsibility.
func (s *Service) CreateAccountTx(tx *sql.Tx, actor model.Actor, p AccountParams) (*model.Account, error) {
	if !p.Type.Valid() {
		return nil, apperr.Validation("unknown account type %q", p.Type)
	}
	a := &model.Account{
		ID:           id.New(),
		TenantID:     actor.TenantID,
		EntityID:     p.EntityID,
		ChartID:      p.ChartID,
		Number:       p.Number,
		Name:         p.Name,
		Type:         p.Type,
		Subledger:    p.Subledger,
		ParentID:     p.ParentID,
		Intercompany: p.Intercompany,
		Currency:     p.Currency,
		Active:       true,
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.insertAccount(tx, actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

// insertAccount writes an account inside an existing transaction.
func (s *Service) insertAccount(tx *sql.Tx, actor model.Actor, a *model.Account) error {
	_, err := tx.Exec(
		`INSERT INTO accounts (id, tenant_id, entity_id, chart_id, number, name, type, subledger,
			parent_id, intercompany, currency, active, balance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, '0', ?)`,
		a.ID, a.TenantID, a.EntityID, a.ChartID, a.Number, a.Name, string(a.Type),
		string(a.Subledger), a.ParentID, boolInt(a.Intercompany), a.Currency,
		a.CreatedAt.Format(time.RFC3339))
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("account number %s already exists in entity", a.Number)
	}
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	s.audit.Record(tx, model.AuditEntry{
		TenantID:   actor.TenantID,
		Action:     "account.create",
		EntityType: "account",
		TargetID:   a.ID,
		ActorID:    actor.UserID,
		Details:    fmt.Sprintf("number=%s type=%s", a.Number, a.Type),
	})
	return nil
}

// AccountUpdate lists the only mutable account fields. Nil means leave
// unchanged.
type AccountUpdate struct {
	Name         *string
	Active       *bool
	ParentID     *string
	Intercompany *bool
}

// UpdateAccount changes name, active flag, parent link or intercompany
// flag. Number and type are immutable.
func (s *Service) UpdateAccount(actor model.Actor, accountID string, upd AccountUpdate) (*model.Account, error) {
	a, err := s.GetAccount(actor, accountID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, apperr.Validation("account name cannot be empty")
		}
		a.Name = *upd.Name
	}
	if upd.Active != nil {
		a.Active = *upd.Active
	}
	if upd.ParentID != nil {
		if *upd.ParentID == accountID {
			return nil, apperr.Validation("account cannot be its own parent")
		}
		if *upd.ParentID != "" {
			parent, err := s.GetAccount(actor, *upd.ParentID)
			if err != nil {
				return nil, err
			}
			if parent.EntityID != a.EntityID {
				return nil, apperr.Validation("parent account %s belongs to another entity", parent.Number)
			}
		}
		a.ParentID = *upd.ParentID
	}
	if upd.Intercompany != nil {
		a.Intercompany = *upd.Intercompany
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE accounts SET name = ?, active = ?, parent_id = ?, intercompany = ?
			 WHERE id = ? AND tenant_id = ?`,
			a.Name, boolInt(a.Active), a.ParentID, boolInt(a.Intercompany),
			accountID, actor.TenantID)
		if err != nil {
			return fmt.Errorf("updating account: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "account.update",
			EntityType: "account",
			TargetID:   accountID,
			ActorID:    actor.UserID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount removes an account that has no transactions and no
// child accounts; otherwise it fails with a conflict.
func (s *Service) DeleteAccount(actor model.Actor, accountID string) error {
	if _, err := s.GetAccount(actor, accountID); err != nil {
		return err
	}

	return s.db.WithTx(func(tx *sql.Tx) error {
		var lines int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM journal_lines WHERE account_id = ?`, accountID).Scan(&lines); err != nil {
			return fmt.Errorf("counting account lines: %w", err)
		}
		if lines > 0 {
			return apperr.Conflict("account has %d transactions", lines)
		}

		var children int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM accounts WHERE parent_id = ?`, accountID).Scan(&children); err != nil {
			return fmt.Errorf("counting child accounts: %w", err)
		}
		if children > 0 {
			return apperr.Conflict("account has %d child accounts", children)
		}

		if _, err := tx.Exec(
			`DELETE FROM accounts WHERE id = ? AND tenant_id = ?`, accountID, actor.TenantID); err != nil {
			return fmt.Errorf("deleting account: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "account.delete",
			EntityType: "account",
			TargetID:   accountID,
			ActorID:    actor.UserID,
		})
		return nil
	})
}

// GetAccount returns a tenant's account by id.
func (s *Service) GetAccount(actor model.Actor, accountID string) (*model.Account, error) {
	a, err := scanAccountRow(s.db.Conn().QueryRow(
		accountSelect+` WHERE id = ? AND tenant_id = ?`, accountID, actor.TenantID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("account %s not found", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	return a, nil
}

// GetAccountByNumber returns an entity's account by number.
func (s *Service) GetAccountByNumber(actor model.Actor, entityID, number string) (*model.Account, error) {
	a, err := scanAccountRow(s.db.Conn().QueryRow(
		accountSelect+` WHERE entity_id = ? AND number = ? AND tenant_id = ?`,
		entityID, number, actor.TenantID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("account %s not found in entity", number)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	return a, nil
}

// ListAccounts returns an entity's accounts ordered by number.
func (s *Service) ListAccounts(actor model.Actor, entityID string) ([]model.Account, error) {
	rows, err := s.db.Conn().Query(
		accountSelect+` WHERE entity_id = ? AND tenant_id = ? ORDER BY number`,
		entityID, actor.TenantID)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// ApplyBalanceDelta applies a signed increment to an account balance
// inside the caller's transaction. The journal engine is the only
// caller; no other component writes balances.
func ApplyBalanceDelta(tx *sql.Tx, accountID string, delta decimal.Decimal) error {
	var raw string
	if err := tx.QueryRow(
		`SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return apperr.NotFound("account %s not found", accountID)
		}
		return fmt.Errorf("reading balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parsing balance: %w", err)
	}

	next := balance.Add(delta)
	if _, err := tx.Exec(
		`UPDATE accounts SET balance = ? WHERE id = ?`, next.String(), accountID); err != nil {
		return fmt.Errorf("writing balance: %w", err)
	}
	return nil
}

const accountSelect = `SELECT id, tenant_id, entity_id, chart_id, number, name, type, subledger,
	parent_id, intercompany, currency, active, balance, created_at FROM accounts`

func scanAccountRow(row rowScanner) (*model.Account, error) {
	var a model.Account
	var accType, subledger, balance, createdAt string
	var intercompany, active int
	err := row.Scan(&a.ID, &a.TenantID, &a.EntityID, &a.ChartID, &a.Number, &a.Name,
		&accType, &subledger, &a.ParentID, &intercompany, &a.Currency, &active,
		&balance, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Type = model.AccountType(accType)
	a.Subledger = model.SubledgerType(subledger)
	a.Intercompany = intercompany != 0
	a.Active = active != 0
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parsing balance: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
