package database

// schema is the full DDL. Money columns are canonical decimal strings,
// entry dates are "YYYY-MM-DD" and timestamps RFC3339, so lexicographic
// comparison matches chronological order.
const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	code        TEXT NOT NULL,
	name        TEXT NOT NULL,
	currency    TEXT NOT NULL,
	parent_id   TEXT NOT NULL DEFAULT '',
	ownership   TEXT NOT NULL DEFAULT '100',
	method      TEXT NOT NULL DEFAULT 'full',
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_tenant_code
	ON entities(tenant_id, code);

CREATE TABLE IF NOT EXISTS charts (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	entity_id   TEXT NOT NULL REFERENCES entities(id),
	name        TEXT NOT NULL,
	version     INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_charts_entity_name
	ON charts(entity_id, name);

CREATE TABLE IF NOT EXISTS account_templates (
	id            TEXT PRIMARY KEY,
	chart_id      TEXT NOT NULL REFERENCES charts(id),
	number        TEXT NOT NULL,
	name          TEXT NOT NULL,
	type          TEXT NOT NULL,
	fsli          TEXT NOT NULL DEFAULT '',
	subledger     TEXT NOT NULL DEFAULT '',
	parent_number TEXT NOT NULL DEFAULT '',
	intercompany  INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_chart_number
	ON account_templates(chart_id, number);

CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	entity_id    TEXT NOT NULL REFERENCES entities(id),
	chart_id     TEXT NOT NULL DEFAULT '',
	number       TEXT NOT NULL,
	name         TEXT NOT NULL,
	type         TEXT NOT NULL,
	subledger    TEXT NOT NULL DEFAULT '',
	parent_id    TEXT NOT NULL DEFAULT '',
	intercompany INTEGER NOT NULL DEFAULT 0,
	currency     TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1,
	balance      TEXT NOT NULL DEFAULT '0',
	created_at   TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_entity_number
	ON accounts(entity_id, number);

CREATE TABLE IF NOT EXISTS journal_entries (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	entity_id     TEXT NOT NULL REFERENCES entities(id),
	entry_number  TEXT NOT NULL,
	entry_date    TEXT NOT NULL,
	year          INTEGER NOT NULL,
	month         INTEGER NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	total         TEXT NOT NULL,
	currency      TEXT NOT NULL,
	exchange_rate TEXT NOT NULL DEFAULT '1',
	reversal_of   TEXT NOT NULL DEFAULT '',
	reversed_by   TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_entity_number
	ON journal_entries(entity_id, entry_number);
CREATE INDEX IF NOT EXISTS idx_entries_entity_date
	ON journal_entries(entity_id, entry_date);

CREATE TABLE IF NOT EXISTS journal_lines (
	id                TEXT PRIMARY KEY,
	entry_id          TEXT NOT NULL REFERENCES journal_entries(id),
	line_no           INTEGER NOT NULL,
	account_id        TEXT NOT NULL REFERENCES accounts(id),
	side              TEXT NOT NULL,
	amount            TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	related_entity_id TEXT NOT NULL DEFAULT '',
	elimination_ref   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_lines_entry ON journal_lines(entry_id);
CREATE INDEX IF NOT EXISTS idx_lines_account ON journal_lines(account_id);

-- Per-(entity, year, month) counters remove the count-then-format race
-- on entry numbers: the bump happens inside the posting transaction.
CREATE TABLE IF NOT EXISTS entry_counters (
	entity_id TEXT NOT NULL,
	year      INTEGER NOT NULL,
	month     INTEGER NOT NULL,
	seq       INTEGER NOT NULL,
	PRIMARY KEY (entity_id, year, month)
);

CREATE TABLE IF NOT EXISTS consolidations (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	entity_id    TEXT NOT NULL REFERENCES entities(id),
	year         INTEGER NOT NULL,
	month        INTEGER NOT NULL,
	status       TEXT NOT NULL,
	currency     TEXT NOT NULL,
	report       TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_consolidations_entity_period
	ON consolidations(entity_id, year, month);

CREATE TABLE IF NOT EXISTS consolidation_members (
	consolidation_id TEXT NOT NULL REFERENCES consolidations(id) ON DELETE CASCADE,
	entity_id        TEXT NOT NULL,
	ownership        TEXT NOT NULL,
	method           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS elimination_entries (
	id                TEXT PRIMARY KEY,
	consolidation_id  TEXT NOT NULL REFERENCES consolidations(id) ON DELETE CASCADE,
	category          TEXT NOT NULL,
	account_number    TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	amount            TEXT NOT NULL,
	related_entity_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS exchange_rates (
	from_currency TEXT NOT NULL,
	to_currency   TEXT NOT NULL,
	rate_date     TEXT NOT NULL,
	rate          TEXT NOT NULL,
	PRIMARY KEY (from_currency, to_currency, rate_date)
);

CREATE TABLE IF NOT EXISTS fixed_assets (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL,
	entity_id           TEXT NOT NULL REFERENCES entities(id),
	name                TEXT NOT NULL,
	acquisition_cost    TEXT NOT NULL,
	acquired_at         TEXT NOT NULL,
	method              TEXT NOT NULL,
	useful_life_months  INTEGER NOT NULL,
	salvage_value       TEXT NOT NULL,
	book_value          TEXT NOT NULL,
	expense_account     TEXT NOT NULL,
	accumulated_account TEXT NOT NULL,
	disposed            INTEGER NOT NULL DEFAULT 0,
	disposed_at         TEXT NOT NULL DEFAULT '',
	created_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_entity ON fixed_assets(entity_id);

CREATE TABLE IF NOT EXISTS depreciation_schedule (
	id               TEXT PRIMARY KEY,
	asset_id         TEXT NOT NULL REFERENCES fixed_assets(id),
	year             INTEGER NOT NULL,
	month            INTEGER NOT NULL,
	amount           TEXT NOT NULL,
	book_value_after TEXT NOT NULL,
	journal_entry_id TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_schedule_asset_period
	ON depreciation_schedule(asset_id, year, month);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	details     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_log(tenant_id, timestamp);
`
