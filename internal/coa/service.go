// Package coa manages charts of accounts: versioned template
// catalogues from which live ledger accounts are instantiated.
package coa

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/id"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

// Service provides chart-of-accounts operations.
type Service struct {
	db       *database.DB
	audit    *audit.Recorder
	registry *registry.Service
	log      zerolog.Logger
}

// NewService creates a chart-of-accounts Service.
func NewService(db *database.DB, rec *audit.Recorder, reg *registry.Service, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		audit:    rec,
		registry: reg,
		log:      log.With().Str("component", "coa").Logger(),
	}
}

// CreateChart creates an empty named chart for an entity.
func (s *Service) CreateChart(actor model.Actor, entityID, name string) (*model.ChartOfAccounts, error) {
	return s.createChart(actor, entityID, name, nil)
}

// CreateDefaultChart creates a chart seeded with the canonical default
// templates.
func (s *Service) CreateDefaultChart(actor model.Actor, entityID, name string) (*model.ChartOfAccounts, error) {
	return s.createChart(actor, entityID, name, DefaultTemplates())
}

// CreateChartWithTemplates creates a chart pre-populated with the given
// templates, e.g. from a CSV import.
func (s *Service) CreateChartWithTemplates(actor model.Actor, entityID, name string, templates []model.AccountTemplate) (*model.ChartOfAccounts, error) {
	return s.createChart(actor, entityID, name, templates)
}

// GetChartByName resolves an entity's chart by its unique name.
func (s *Service) GetChartByName(actor model.Actor, entityID, name string) (*model.ChartOfAccounts, error) {
	var chartID string
	err := s.db.Conn().QueryRow(
		`SELECT id FROM charts WHERE tenant_id = ? AND entity_id = ? AND name = ?`,
		actor.TenantID, entityID, name).Scan(&chartID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("chart %q not found for entity", name)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up chart: %w", err)
	}
	return s.GetChart(actor, chartID)
}

func (s *Service) createChart(actor model.Actor, entityID, name string, templates []model.AccountTemplate) (*model.ChartOfAccounts, error) {
	if name == "" {
		return nil, apperr.Validation("chart name is required")
	}
	if _, err := s.registry.GetEntity(actor, entityID); err != nil {
		return nil, err
	}
	if err := ValidateUniqueNumbers(templates); err != nil {
		return nil, err
	}

	chart := &model.ChartOfAccounts{
		ID:        id.New(),
		TenantID:  actor.TenantID,
		EntityID:  entityID,
		Name:      name,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO charts (id, tenant_id, entity_id, name, version, created_at)
			 VALUES (?, ?, ?, ?, 1, ?)`,
			chart.ID, chart.TenantID, chart.EntityID, chart.Name,
			chart.CreatedAt.Format(time.RFC3339))
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("chart %q already exists for entity", name)
		}
		if err != nil {
			return fmt.Errorf("inserting chart: %w", err)
		}

		for i := range templates {
			templates[i].ID = id.New()
			templates[i].ChartID = chart.ID
			if err := insertTemplate(tx, templates[i]); err != nil {
				return err
			}
		}

		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "chart.create",
			EntityType: "chart",
			TargetID:   chart.ID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("name=%s accounts=%d", name, len(templates)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	chart.Templates = templates
	s.log.Info().Str("chart", name).Int("accounts", len(templates)).Msg("chart created")
	return chart, nil
}

// GetChart returns a chart with its templates, ordered by number.
func (s *Service) GetChart(actor model.Actor, chartID string) (*model.ChartOfAccounts, error) {
	chart, err := s.loadChart(actor, chartID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Conn().Query(
		`SELECT id, chart_id, number, name, type, fsli, subledger, parent_number, intercompany
		 FROM account_templates WHERE chart_id = ? ORDER BY number`, chartID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.AccountTemplate
		var accType, subledger string
		var intercompany int
		if err := rows.Scan(&t.ID, &t.ChartID, &t.Number, &t.Name, &accType,
			&t.FSLI, &subledger, &t.ParentNumber, &intercompany); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		t.Type = model.AccountType(accType)
		t.Subledger = model.SubledgerType(subledger)
		t.Intercompany = intercompany != 0
		chart.Templates = append(chart.Templates, t)
	}
	return chart, rows.Err()
}

// AddTemplate appends a template to a chart at the expected version.
func (s *Service) AddTemplate(actor model.Actor, chartID string, version int, tpl model.AccountTemplate) error {
	if tpl.Number == "" || tpl.Name == "" {
		return apperr.Validation("template number and name are required")
	}
	if !tpl.Type.Valid() {
		return apperr.Validation("unknown account type %q", tpl.Type)
	}
	if tpl.ParentNumber == tpl.Number {
		return apperr.Validation("account %s cannot be its own parent", tpl.Number)
	}

	chart, err := s.GetChart(actor, chartID)
	if err != nil {
		return err
	}
	for _, existing := range chart.Templates {
		if existing.Number == tpl.Number {
			return apperr.Conflict("account number %s already exists in chart", tpl.Number)
		}
	}
	if tpl.ParentNumber != "" && !hasNumber(chart.Templates, tpl.ParentNumber) {
		return apperr.Validation("parent account %s not found in chart", tpl.ParentNumber)
	}

	tpl.ID = id.New()
	tpl.ChartID = chartID

	return s.db.WithTx(func(tx *sql.Tx) error {
		if err := s.bumpVersion(tx, chartID, version); err != nil {
			return err
		}
		if err := insertTemplate(tx, tpl); err != nil {
			return err
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "chart.account.add",
			EntityType: "chart",
			TargetID:   chartID,
			ActorID:    actor.UserID,
			Details:    "number=" + tpl.Number,
		})
		return nil
	})
}

// TemplateUpdate lists mutable template fields; number and type are
// fixed once created.
type TemplateUpdate struct {
	Name         *string
	FSLI         *string
	Subledger    *model.SubledgerType
	ParentNumber *string
	Intercompany *bool
}

// UpdateTemplate edits a template at the expected chart version.
func (s *Service) UpdateTemplate(actor model.Actor, chartID string, version int, number string, upd TemplateUpdate) error {
	chart, err := s.GetChart(actor, chartID)
	if err != nil {
		return err
	}
	tpl := findNumber(chart.Templates, number)
	if tpl == nil {
		return apperr.NotFound("account %s not found in chart", number)
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return apperr.Validation("template name cannot be empty")
		}
		tpl.Name = *upd.Name
	}
	if upd.FSLI != nil {
		tpl.FSLI = *upd.FSLI
	}
	if upd.Subledger != nil {
		tpl.Subledger = *upd.Subledger
	}
	if upd.ParentNumber != nil {
		if *upd.ParentNumber == number {
			return apperr.Validation("account %s cannot be its own parent", number)
		}
		if *upd.ParentNumber != "" && !hasNumber(chart.Templates, *upd.ParentNumber) {
			return apperr.Validation("parent account %s not found in chart", *upd.ParentNumber)
		}
		tpl.ParentNumber = *upd.ParentNumber
	}
	if upd.Intercompany != nil {
		tpl.Intercompany = *upd.Intercompany
	}

	return s.db.WithTx(func(tx *sql.Tx) error {
		if err := s.bumpVersion(tx, chartID, version); err != nil {
			return err
		}
		_, err := tx.Exec(
			`UPDATE account_templates SET name = ?, fsli = ?, subledger = ?, parent_number = ?, intercompany = ?
			 WHERE chart_id = ? AND number = ?`,
			tpl.Name, tpl.FSLI, string(tpl.Subledger), tpl.ParentNumber,
			boolInt(tpl.Intercompany), chartID, number)
		if err != nil {
			return fmt.Errorf("updating template: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "chart.account.update",
			EntityType: "chart",
			TargetID:   chartID,
			ActorID:    actor.UserID,
			Details:    "number=" + number,
		})
		return nil
	})
}

// RemoveTemplate deletes a template unless another template parents on
// it.
func (s *Service) RemoveTemplate(actor model.Actor, chartID string, version int, number string) error {
	chart, err := s.GetChart(actor, chartID)
	if err != nil {
		return err
	}
	if findNumber(chart.Templates, number) == nil {
		return apperr.NotFound("account %s not found in chart", number)
	}
	for _, t := range chart.Templates {
		if t.ParentNumber == number {
			return apperr.Conflict("account %s is the parent of %s", number, t.Number)
		}
	}

	return s.db.WithTx(func(tx *sql.Tx) error {
		if err := s.bumpVersion(tx, chartID, version); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`DELETE FROM account_templates WHERE chart_id = ? AND number = ?`,
			chartID, number); err != nil {
			return fmt.Errorf("deleting template: %w", err)
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "chart.account.remove",
			EntityType: "chart",
			TargetID:   chartID,
			ActorID:    actor.UserID,
			Details:    "number=" + number,
		})
		return nil
	})
}

// ImportTemplates merges the source chart's templates into the target,
// skipping numbers the target already has. Returns how many were added.
func (s *Service) ImportTemplates(actor model.Actor, targetChartID string, version int, sourceChartID string) (int, error) {
	target, err := s.GetChart(actor, targetChartID)
	if err != nil {
		return 0, err
	}
	source, err := s.GetChart(actor, sourceChartID)
	if err != nil {
		return 0, err
	}

	var incoming []model.AccountTemplate
	for _, t := range source.Templates {
		if hasNumber(target.Templates, t.Number) {
			continue
		}
		t.ID = id.New()
		t.ChartID = targetChartID
		// Drop parent links pointing outside the merged set.
		if t.ParentNumber != "" && !hasNumber(source.Templates, t.ParentNumber) &&
			!hasNumber(target.Templates, t.ParentNumber) {
			t.ParentNumber = ""
		}
		incoming = append(incoming, t)
	}
	if len(incoming) == 0 {
		return 0, nil
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		if err := s.bumpVersion(tx, targetChartID, version); err != nil {
			return err
		}
		for _, t := range incoming {
			if err := insertTemplate(tx, t); err != nil {
				return err
			}
		}
		s.audit.Record(tx, model.AuditEntry{
			TenantID:   actor.TenantID,
			Action:     "chart.import",
			EntityType: "chart",
			TargetID:   targetChartID,
			ActorID:    actor.UserID,
			Details:    fmt.Sprintf("source=%s added=%d", sourceChartID, len(incoming)),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(incoming), nil
}

// InstantiateAccounts creates live registry accounts for every template
// in the chart that the entity does not already have. Parents are
// created before children so the hierarchy links resolve.
func (s *Service) InstantiateAccounts(actor model.Actor, chartID string) (int, error) {
	chart, err := s.GetChart(actor, chartID)
	if err != nil {
		return 0, err
	}

	existing, err := s.registry.ListAccounts(actor, chart.EntityID)
	if err != nil {
		return 0, err
	}
	byNumber := make(map[string]string, len(existing))
	for _, a := range existing {
		byNumber[a.Number] = a.ID
	}

	pending := chart.Templates
	created := 0
	for len(pending) > 0 {
		var next []model.AccountTemplate
		progress := false
		for _, t := range pending {
			if _, ok := byNumber[t.Number]; ok {
				progress = true
				continue
			}
			parentID := ""
			if t.ParentNumber != "" {
				pid, ok := byNumber[t.ParentNumber]
				if !ok {
					next = append(next, t)
					continue
				}
				parentID = pid
			}
			a, err := s.registry.CreateAccount(actor, registry.AccountParams{
				EntityID:     chart.EntityID,
				ChartID:      chartID,
				Number:       t.Number,
				Name:         t.Name,
				Type:         t.Type,
				Subledger:    t.Subledger,
				ParentID:     parentID,
				Intercompany: t.Intercompany,
			})
			if err != nil {
				return created, err
			}
			byNumber[t.Number] = a.ID
			created++
			progress = true
		}
		if !progress {
			return created, apperr.Validation("chart has unresolvable parent links")
		}
		pending = next
	}
	return created, nil
}

// ValidateUniqueNumbers rejects a template set containing duplicate
// account numbers. Runs before any save.
func ValidateUniqueNumbers(templates []model.AccountTemplate) error {
	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if seen[t.Number] {
			return apperr.Conflict("duplicate account number %s in chart", t.Number)
		}
		seen[t.Number] = true
	}
	return nil
}

func (s *Service) loadChart(actor model.Actor, chartID string) (*model.ChartOfAccounts, error) {
	var c model.ChartOfAccounts
	var createdAt string
	err := s.db.Conn().QueryRow(
		`SELECT id, tenant_id, entity_id, name, version, created_at
		 FROM charts WHERE id = ? AND tenant_id = ?`, chartID, actor.TenantID).
		Scan(&c.ID, &c.TenantID, &c.EntityID, &c.Name, &c.Version, &createdAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("chart %s not found", chartID)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning chart: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

// bumpVersion is the optimistic concurrency check: the update only
// lands if the caller saw the current version.
func (s *Service) bumpVersion(tx *sql.Tx, chartID string, expected int) error {
	res, err := tx.Exec(
		`UPDATE charts SET version = version + 1 WHERE id = ? AND version = ?`,
		chartID, expected)
	if err != nil {
		return fmt.Errorf("bumping chart version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("chart version %d is stale", expected)
	}
	return nil
}

func insertTemplate(tx *sql.Tx, t model.AccountTemplate) error {
	_, err := tx.Exec(
		`INSERT INTO account_templates (id, chart_id, number, name, type, fsli, subledger, parent_number, intercompany)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ChartID, t.Number, t.Name, string(t.Type), t.FSLI,
		string(t.Subledger), t.ParentNumber, boolInt(t.Intercompany))
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("account number %s already exists in chart", t.Number)
	}
	if err != nil {
		return fmt.Errorf("inserting template %s: %w", t.Number, err)
	}
	return nil
}

func hasNumber(templates []model.AccountTemplate, number string) bool {
	return findNumber(templates, number) != nil
}

func findNumber(templates []model.AccountTemplate, number string) *model.AccountTemplate {
	for i := range templates {
		if templates[i].Number == number {
			return &templates[i]
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
