package coa

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/apperr"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/audit"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

var actor = model.Actor{TenantID: "t1", UserID: "u1"}

func newService(t *testing.T) (*Service, *registry.Service, *model.Entity) {
	db := database.OpenTest(t)
	rec := audit.NewRecorder(db, zerolog.Nop())
	t.Cleanup(rec.Close)
	reg := registry.NewService(db, rec, zerolog.Nop())
	svc := NewService(db, rec, reg, zerolog.Nop())

	e, err := reg.CreateEntity(actor, registry.EntityParams{
		Code: "ACME", Name: "Acme Inc", Currency: "USD"})
	require.NoError(t, err)
	return svc, reg, e
}

func TestCreateDefaultChart(t *testing.T) {
	svc, _, e := newService(t)

	chart, err := svc.CreateDefaultChart(actor, e.ID, "Standard")
	require.NoError(t, err)
	assert.Equal(t, 1, chart.Version)
	assert.Len(t, chart.Templates, 23)

	// All five types are represented.
	types := map[model.AccountType]bool{}
	for _, tpl := range chart.Templates {
		types[tpl.Type] = true
	}
	assert.Len(t, types, 5)

	// The seed always passes the uniqueness validator.
	assert.NoError(t, ValidateUniqueNumbers(chart.Templates))
}

func TestCreateChartDuplicateName(t *testing.T) {
	svc, _, e := newService(t)

	_, err := svc.CreateChart(actor, e.ID, "Standard")
	require.NoError(t, err)
	_, err = svc.CreateChart(actor, e.ID, "Standard")
	assert.True(t, apperr.IsConflict(err), "got %v", err)
}

func TestValidateUniqueNumbersRejectsDuplicates(t *testing.T) {
	templates := []model.AccountTemplate{
		{Number: "1000", Name: "Cash", Type: model.AccountTypeAsset},
		{Number: "1000", Name: "Cash Again", Type: model.AccountTypeAsset},
	}
	err := ValidateUniqueNumbers(templates)
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	// And the chart is rejected before any save.
	svc, _, e := newService(t)
	_, err = svc.createChart(actor, e.ID, "Broken", templates)
	assert.True(t, apperr.IsConflict(err))
	charts, qerr := svc.db.Conn().Query(`SELECT id FROM charts`)
	require.NoError(t, qerr)
	defer charts.Close()
	assert.False(t, charts.Next(), "nothing saved")
}

func TestAddTemplateChecks(t *testing.T) {
	svc, _, e := newService(t)
	chart, err := svc.CreateDefaultChart(actor, e.ID, "Standard")
	require.NoError(t, err)

	// Duplicate number.
	err = svc.AddTemplate(actor, chart.ID, chart.Version, model.AccountTemplate{
		Number: "1000", Name: "Cash Again", Type: model.AccountTypeAsset})
	assert.True(t, apperr.IsConflict(err))

	// Self-parenting.
	err = svc.AddTemplate(actor, chart.ID, chart.Version, model.AccountTemplate{
		Number: "1700", Name: "Loop", Type: model.AccountTypeAsset, ParentNumber: "1700"})
	assert.True(t, apperr.IsValidation(err))

	// Valid addition bumps the version.
	err = svc.AddTemplate(actor, chart.ID, chart.Version, model.AccountTemplate{
		Number: "1700", Name: "Deposits", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	got, err := svc.GetChart(actor, chart.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Len(t, got.Templates, 24)
}

func TestStaleVersionRejected(t *testing.T) {
	svc, _, e := newService(t)
	chart, err := svc.CreateDefaultChart(actor, e.ID, "Standard")
	require.NoError(t, err)

	require.NoError(t, svc.AddTemplate(actor, chart.ID, 1, model.AccountTemplate{
		Number: "1700", Name: "Deposits", Type: model.AccountTypeAsset}))

	// A second writer still holding version 1 loses.
	err = svc.AddTemplate(actor, chart.ID, 1, model.AccountTemplate{
		Number: "1800", Name: "Stale", Type: model.AccountTypeAsset})
	assert.True(t, apperr.IsConflict(err), "got %v", err)
}

func TestRemoveTemplateBlockedByParentLink(t *testing.T) {
	svc, _, e := newService(t)
	chart, err := svc.CreateDefaultChart(actor, e.ID, "Standard")
	require.NoError(t, err)

	// 1500 is the parent of 1590 in the default chart.
	err = svc.RemoveTemplate(actor, chart.ID, chart.Version, "1500")
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	require.NoError(t, svc.RemoveTemplate(actor, chart.ID, chart.Version, "1590"))
	err = svc.RemoveTemplate(actor, chart.ID, chart.Version+1, "1500")
	assert.NoError(t, err)
}

func TestImportTemplatesMergesNonConflicting(t *testing.T) {
	svc, _, e := newService(t)
	target, err := svc.CreateChart(actor, e.ID, "Target")
	require.NoError(t, err)
	require.NoError(t, svc.AddTemplate(actor, target.ID, 1, model.AccountTemplate{
		Number: "1000", Name: "Cash", Type: model.AccountTypeAsset}))

	source, err := svc.CreateDefaultChart(actor, e.ID, "Source")
	require.NoError(t, err)

	added, err := svc.ImportTemplates(actor, target.ID, 2, source.ID)
	require.NoError(t, err)
	assert.Equal(t, 22, added, "the conflicting 1000 is skipped")

	got, err := svc.GetChart(actor, target.ID)
	require.NoError(t, err)
	assert.Len(t, got.Templates, 23)
	assert.Equal(t, "Cash", findNumber(got.Templates, "1000").Name, "target wins on conflict")
}

func TestInstantiateAccounts(t *testing.T) {
	svc, reg, e := newService(t)
	chart, err := svc.CreateDefaultChart(actor, e.ID, "Standard")
	require.NoError(t, err)

	created, err := svc.InstantiateAccounts(actor, chart.ID)
	require.NoError(t, err)
	assert.Equal(t, 23, created)

	accounts, err := reg.ListAccounts(actor, e.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 23)

	// The hierarchy link resolved: 1590 hangs off 1500.
	accum, err := reg.GetAccountByNumber(actor, e.ID, "1590")
	require.NoError(t, err)
	ppe, err := reg.GetAccountByNumber(actor, e.ID, "1500")
	require.NoError(t, err)
	assert.Equal(t, ppe.ID, accum.ParentID)

	// Idempotent: a second run creates nothing.
	created, err = svc.InstantiateAccounts(actor, chart.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}
