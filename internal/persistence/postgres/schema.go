package postgres

// Schema creates the tables the repositories use
const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id        TEXT PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	timeframe     TEXT NOT NULL,
	denomination  TEXT NOT NULL,
	min_move_pct  DOUBLE PRECISION NOT NULL,
	lookback_bars INTEGER NOT NULL,
	events        INTEGER NOT NULL,
	catch_rate    DOUBLE PRECISION NOT NULL,
	mean_score    DOUBLE PRECISION NOT NULL,
	report        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS backtest_events (
	id           BIGSERIAL PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES backtest_runs(run_id) ON DELETE CASCADE,
	symbol       TEXT NOT NULL,
	category     TEXT NOT NULL,
	start_date   TIMESTAMPTZ NOT NULL,
	start_price  DOUBLE PRECISION NOT NULL,
	peak_date    TIMESTAMPTZ NOT NULL,
	peak_price   DOUBLE PRECISION NOT NULL,
	return_pct   DOUBLE PRECISION NOT NULL,
	days_to_peak INTEGER NOT NULL,
	scored       BOOLEAN NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	bucket       TEXT NOT NULL,
	skip_reason  TEXT NOT NULL DEFAULT '',
	breakdown    JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS backtest_events_run_idx ON backtest_events (run_id, category, symbol, start_date);

CREATE TABLE IF NOT EXISTS tune_runs (
	run_id            TEXT PRIMARY KEY,
	category          TEXT NOT NULL,
	events            INTEGER NOT NULL,
	evaluations       INTEGER NOT NULL,
	initial_objective DOUBLE PRECISION NOT NULL,
	best_objective    DOUBLE PRECISION NOT NULL,
	catch_rate        DOUBLE PRECISION NOT NULL,
	params            JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS tune_runs_category_idx ON tune_runs (category, created_at DESC);
`
