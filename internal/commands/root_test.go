package commands_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/commands"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := commands.NewRootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "init", dir))

	cfg := filepath.Join(dir, "advisory.yaml")
	with := func(args ...string) []string {
		return append([]string{"--config", cfg}, args...)
	}

	require.NoError(t, run(t, with("entity", "create", "ACME", "--name", "Acme Inc")...))
	require.NoError(t, run(t, with("chart", "seed", "--entity", "ACME")...))

	require.NoError(t, run(t, with("journal", "post",
		"--entity", "ACME", "--date", "2025-01-15",
		"--desc", "January invoice",
		"--line", "1000:debit:500",
		"--line", "4000:credit:500")...))

	require.NoError(t, run(t, with("report", "trial-balance",
		"--entity", "ACME", "--from", "2025-01-01", "--to", "2025-01-31")...))
	require.NoError(t, run(t, with("report", "balance-sheet",
		"--entity", "ACME", "--as-of", "2025-01-31")...))

	require.NoError(t, run(t, with("asset", "create", "Server rack",
		"--entity", "ACME", "--cost", "2400", "--acquired", "2025-01-01",
		"--life-months", "24")...))
	require.NoError(t, run(t, with("depreciate",
		"--entity", "ACME", "--as-of", "2025-02-28")...))

	require.NoError(t, run(t, with("audit")...))
}

func TestInitRefusesExistingWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "init", dir))
	assert.Error(t, run(t, "init", dir), "init must not clobber an existing config")
}

func TestPostRejectsUnbalancedEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "init", dir))
	cfg := filepath.Join(dir, "advisory.yaml")

	require.NoError(t, run(t, "--config", cfg, "entity", "create", "ACME", "--name", "Acme Inc"))
	require.NoError(t, run(t, "--config", cfg, "chart", "seed", "--entity", "ACME"))

	err := run(t, "--config", cfg, "journal", "post",
		"--entity", "ACME", "--date", "2025-01-15",
		"--line", "1000:debit:500",
		"--line", "4000:credit:400")
	assert.Error(t, err)
}

func TestUnknownEntityCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "init", dir))
	cfg := filepath.Join(dir, "advisory.yaml")

	err := run(t, "--config", cfg, "entity", "deactivate", "GHOST")
	assert.Error(t, err)
}
