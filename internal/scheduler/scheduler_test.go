package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/coa"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/fixedassets"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/journal"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

func TestRunDepreciationSweepsActiveEntitiesAcrossTenants(t *testing.T) {
	db := database.OpenTest(t)
	rec := audit.NewRecorder(db, zerolog.Nop())
	t.Cleanup(rec.Close)
	reg := registry.NewService(db, rec, zerolog.Nop())
	charts := coa.NewService(db, rec, reg, zerolog.Nop())
	jrn := journal.NewService(db, rec, reg, journal.Options{}, zerolog.Nop())
	assets := fixedassets.NewService(db, rec, reg, jrn, zerolog.Nop())

	newEntity := func(actor model.Actor, code string) *model.Entity {
		e, err := reg.CreateEntity(actor, registry.EntityParams{
			Code: code, Name: code + " Inc", Currency: "USD"})
		require.NoError(t, err)
		chart, err := charts.CreateDefaultChart(actor, e.ID, "Standard")
		require.NoError(t, err)
		_, err = charts.InstantiateAccounts(actor, chart.ID)
		require.NoError(t, err)
		_, err = assets.CreateAsset(actor, fixedassets.AssetParams{
			EntityID: e.ID, Name: "Machine",
			AcquisitionCost:  decimal.RequireFromString("1200"),
			AcquiredAt:       time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			UsefulLifeMonths: 12,
		})
		require.NoError(t, err)
		return e
	}

	alice := model.Actor{TenantID: "t1", UserID: "alice"}
	bob := model.Actor{TenantID: "t2", UserID: "bob"}
	a := newEntity(alice, "ACME")
	b := newEntity(bob, "BETA")
	inactive := newEntity(alice, "OLDC")
	require.NoError(t, reg.DeactivateEntity(alice, inactive.ID))

	s := New(reg, assets, zerolog.Nop())
	s.RunDepreciation(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC))

	for _, tc := range []struct {
		actor  model.Actor
		entity *model.Entity
	}{{alice, a}, {bob, b}} {
		list, err := assets.ListAssets(tc.actor, tc.entity.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].BookValue.Equal(decimal.RequireFromString("1100")),
			"entity %s got %s", tc.entity.Code, list[0].BookValue)
	}

	list, err := assets.ListAssets(alice, inactive.ID)
	require.NoError(t, err)
	assert.True(t, list[0].BookValue.Equal(decimal.RequireFromString("1200")),
		"deactivated entity untouched")
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(nil, nil, zerolog.Nop())
	err := s.Start("every sometimes")
	assert.Error(t, err)
}

func TestPreviousMonthEnd(t *testing.T) {
	got := previousMonthEnd(time.Date(2025, time.March, 1, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), got)

	got = previousMonthEnd(time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), got)
}
