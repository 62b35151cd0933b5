// Package scheduler drives recurring ledger work, currently the
// monthly depreciation run across all active entities.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/fixedassets"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

// DefaultSpec fires at 02:00 UTC on the 1st, closing out the month
// that just ended.
const DefaultSpec = "0 2 1 * *"

// systemUser is the actor recorded for scheduled runs.
const systemUser = "system"

type Scheduler struct {
	cron   *cron.Cron
	reg    *registry.Service
	assets *fixedassets.Service
	log    zerolog.Logger
}

func New(reg *registry.Service, assets *fixedassets.Service, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		reg:    reg,
		assets: assets,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the depreciation job on the given cron spec (empty
// means DefaultSpec) and starts the loop in the background.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	_, err := s.cron.AddFunc(spec, func() {
		asOf := previousMonthEnd(time.Now().UTC())
		s.RunDepreciation(asOf)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info().Str("spec", spec).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunDepreciation runs monthly depreciation for asOf's month on every
// active entity, across tenants. Failures are logged per entity and do
// not stop the sweep.
func (s *Scheduler) RunDepreciation(asOf time.Time) {
	entities, err := s.reg.ListActiveEntities()
	if err != nil {
		s.log.Error().Err(err).Msg("listing entities for depreciation run")
		return
	}
	for _, e := range entities {
		actor := model.Actor{TenantID: e.TenantID, UserID: systemUser}
		n, err := s.assets.RunMonthlyDepreciation(actor, e.ID, asOf)
		if err != nil {
			s.log.Error().Err(err).Str("entity", e.Code).Msg("depreciation run failed")
			continue
		}
		if n > 0 {
			s.log.Info().Str("entity", e.Code).Int("posted", n).Msg("depreciation posted")
		}
	}
}

func previousMonthEnd(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}
