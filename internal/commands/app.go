package commands

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/coa"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/config"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/consolidation"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/fixedassets"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/journal"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/reporting"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/pkg/logger"
)

// globalOptions are the persistent root flags shared by every command.
type globalOptions struct {
	configPath string
	tenant     string
	user       string
}

func (o *globalOptions) actor() model.Actor {
	return model.Actor{TenantID: o.tenant, UserID: o.user}
}

// app wires the full service graph from one config file. Commands open
// it, do their work, and close it.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      *database.DB
	audit   *audit.Recorder
	reg     *registry.Service
	charts  *coa.Service
	journal *journal.Service
	reports *reporting.Service
	consol  *consolidation.Service
	assets  *fixedassets.Service
}

func openApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	db, err := database.Open(database.Config{Path: cfg.DBPath, Name: "ledger"}, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	rec := audit.NewRecorder(db, log)
	reg := registry.NewService(db, rec, log)
	jrn := journal.NewService(db, rec, reg,
		journal.Options{AutoProvisionAccounts: cfg.Journal.AutoProvisionAccounts}, log)

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		audit:   rec,
		reg:     reg,
		charts:  coa.NewService(db, rec, reg, log),
		journal: jrn,
		reports: reporting.NewService(db, log),
		consol:  consolidation.NewService(db, rec, reg, log),
		assets:  fixedassets.NewService(db, rec, reg, jrn, log),
	}, nil
}

func (a *app) close() {
	a.audit.Close()
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing database")
	}
}

// entityByCode resolves the --entity flag, which takes an entity code.
func (a *app) entityByCode(actor model.Actor, code string) (*model.Entity, error) {
	if code == "" {
		return nil, fmt.Errorf("--entity is required")
	}
	return a.reg.GetEntityByCode(actor, code)
}
