// Package registry manages legal entities and their live ledger
// accounts. Account balances have a single writer: the journal engine,
// through ApplyBalanceDelta inside its posting transaction.
package registry

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
)

// Service provides entity and account operations for one database.
type Service struct {
	db    *database.DB
	audit *audit.Recorder
	log   zerolog.Logger
}

// NewService creates a registry Service.
func NewService(db *database.DB, rec *audit.Recorder, log zerolog.Logger) *Service {
	return &Service{
		db:    db,
		audit: rec,
		log:   log.With().Str("component", "registry").Logger(),
	}
}

// EntityParams holds inputs for CreateEntity.
type EntityParams struct {
	Code      string
	Name      string
	Currency  string
	ParentID  string
	Ownership decimal.Decimal // percent; zero defaults to 100
	Method    model.ConsolidationMethod
}

// CreateEntity creates a legal entity. Codes are unique per tenant.
func (s *Service) CreateEntity(actor model.Actor, p EntityParams) (*model.Entity, error) {
	if p.Code == "" {
		return nil, apperr.Validation("entity code is required")
	}
	if p.Name == "" {
		return nil, apperr.Validation("entity name is required")
	}
	if p.Currency == "" {
		return nil, apperr.Validation("entity currency is required")
	}
	if p.Method == "" {
		p.Method = model.MethodFull
	}
	if !p.Method.Valid() {
		return nil, apperr.Validation("unknown consolidation method %q", p.Method)
	}
	if p.Ownership.IsZero() {
		p.Ownership = decimal.NewFromInt(100)
	}
	if p.Ownership.IsNegative() || p.Ownership.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apperr.Validation("ownership must be between 0 and 100")
	}
	if p.ParentID != "" {
		if _, err := s.GetEntity(actor, p.ParentID); err != nil {
			return nil, err
		}
	}

	e := &model.Entity{
		ID:        id.New(),
		TenantID:  actor.TenantID,
		Code:      p.Code,
		Name:      p.Name,
		Currency:  p.Currency,
		ParentID:  p.ParentID,
		Ownership: p.Ownership,
		Method:    p.Method,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO entities (id, tenant_id, code, name, currency, parent_id, ownership, method, active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			e.ID, e.TenantID, e.Code, e.Name, e.Currency, e.ParentID,
			e.Ownership.String(), string(e.Method), e.CreatedAt.Format(time.RFC3339))
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("entity code %q already exists", p.Code)
		}
		if err != nil {
			return fmt.Errorf("inserting entity: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "entity.create",
			EntityType: "entity",
			TargetID:   e.ID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("code=%s name=%s", e.Code, e.Name),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("entity", e.Code).Msg("entity created")
	return e, nil
}

// DeactivateEntity soft-deletes an entity. Entities are never hard
// deleted once they own accounts.
func (s *Service) DeactivateEntity(actor model.Actor, entityID string) error {
	return s.db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE entities SET active = 0 WHERE id = ? AND tenant_id = ?`,
			entityID, actor.TenantID)
		if err != nil {
			return fmt.Errorf("deactivating entity: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("entity %s not found", entityID)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "entity.deactivate",
			EntityType: "entity",
			TargetID:   entityID,
			ActorID:    actor.UserID,
		})
		return nil
	})
}

// GetEntity returns a tenant's entity by id.
func (s *Service) GetEntity(actor model.Actor, entityID string) (*model.Entity, error) {
	return scanEntity(s.db.Conn().QueryRow(
		entitySelect+` WHERE id = ? AND tenant_id = ?`, entityID, actor.TenantID), entityID)
}

// GetEntityByCode returns a tenant's entity by code.
func (s *Service) GetEntityByCode(actor model.Actor, code string) (*model.Entity, error) {
	return scanEntity(s.db.Conn().QueryRow(
		entitySelect+` WHERE code = ? AND tenant_id = ?`, code, actor.TenantID), code)
}

// ListEntities returns all of a tenant's entities, active first.
func (s *Service) ListEntities(actor model.Actor) ([]model.Entity, error) {
	rows, err := s.db.Conn().Query(
		entitySelect+` WHERE tenant_id = ? ORDER BY active DESC, code`, actor.TenantID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e, err := scanEntityRow(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}

// ListActiveEntities returns active entities across every tenant. Used
// by the depreciation scheduler.
func (s *Service) ListActiveEntities() ([]model.Entity, error) {
	rows, err := s.db.Conn().Query(entitySelect + ` WHERE active = 1 ORDER BY tenant_id, code`)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e, err := scanEntityRow(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}

const entitySelect = `SELECT id, tenant_id, code, name, currency, parent_id, ownership, method, active, created_at FROM entities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntityRow(row rowScanner) (*model.Entity, error) {
	var e model.Entity
	var ownership, method, createdAt string
	var active int
	err := row.Scan(&e.ID, &e.TenantID, &e.Code, &e.Name, &e.Currency,
		&e.ParentID, &ownership, &method, &active, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Ownership, err = decimal.NewFromString(ownership)
	if err != nil {
		return nil, fmt.Errorf("parsing ownership: %w", err)
	}
	e.Method = model.ConsolidationMethod(method)
	e.Active = active != 0
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func scanEntity(row *sql.Row, ref string) (*model.Entity, error) {
	e, err := scanEntityRow(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("entity %s not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entity: %w", err)
	}
	return e, nil
}
