package storage

// sqlite.go — histórico de ejecuciones del optimizador.
//
// Estrategia:
//   - `runs`: resumen por ejecución (conteos por outcome). Siempre 1 fila.
//   - `pair_results`: una fila por par y ejecución, con los parámetros elegidos,
//     el PnL del ganador y el error si lo hubo. Permite auditar por qué un par
//     recibió defaults o fue omitido.
//   - Prune automático al arrancar: ejecuciones de más de 90 días.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/statarb/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen por ejecución
CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    started_at  TEXT    NOT NULL,
    finished_at TEXT    NOT NULL,
    pairs       INTEGER NOT NULL DEFAULT 0,
    optimized   INTEGER NOT NULL DEFAULT 0,
    defaulted   INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0
);

-- Una fila por par y ejecución, en el orden de entrada
CREATE TABLE IF NOT EXISTS pair_results (
    run_id      TEXT    NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    leg1        TEXT    NOT NULL,
    leg2        TEXT    NOT NULL,
    hedge_ratio REAL    NOT NULL,
    outcome     TEXT    NOT NULL,
    "window"    INTEGER,
    entry_z     REAL,
    exit_z      REAL,
    stop_z      REAL,
    pnl         REAL    NOT NULL DEFAULT 0,
    trades      INTEGER NOT NULL DEFAULT 0,
    samples     INTEGER NOT NULL DEFAULT 0,
    eligible    INTEGER NOT NULL DEFAULT 0,
    error       TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_pair ON pair_results(leg1, leg2);
`

const (
	retentionRuns = 90 * 24 * time.Hour
	timeLayout    = "2006-01-02T15:04:05.000000000Z07:00" // ancho fijo: ordena bien como texto
)

// SQLiteStorage implementa ports.RunStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia ejecuciones antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el resumen de la ejecución y una fila por par, en una sola transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, report domain.RunReport) error {
	if report.RunID == "" {
		return fmt.Errorf("storage.SaveRun: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	sum := report.Summary()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, pairs, optimized, defaulted, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, formatTime(sum.StartedAt), formatTime(sum.FinishedAt),
		sum.Pairs, sum.Optimized, sum.Defaulted, sum.Skipped, sum.Failed,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pair_results
			(run_id, seq, leg1, leg2, hedge_ratio, outcome, "window", entry_z, exit_z, stop_z,
			 pnl, trades, samples, eligible, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for i, res := range report.Results {
		// parámetros NULL cuando el par no emitió registro
		var window, entryZ, exitZ, stopZ any
		if res.Record != nil {
			window, entryZ, exitZ, stopZ = res.Record.Window, res.Record.EntryZ, res.Record.ExitZ, res.Record.StopZ
		}
		errMsg := ""
		if res.Err != nil {
			errMsg = res.Err.Error()
		}

		if _, err := stmt.ExecContext(ctx,
			report.RunID, i,
			res.Pair.Leg1, res.Pair.Leg2, res.Pair.HedgeRatio,
			string(res.Outcome),
			window, entryZ, exitZ, stopZ,
			res.Result.PnL, res.Result.Trades, res.Samples, res.Eligible,
			errMsg,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert %s: %w", res.Pair.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRuns devuelve las últimas `limit` ejecuciones, la más reciente primero.
func (s *SQLiteStorage) GetRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, pairs, optimized, defaulted, skipped, failed
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var started, finished string
		if err := rows.Scan(
			&r.RunID, &started, &finished,
			&r.Pairs, &r.Optimized, &r.Defaulted, &r.Skipped, &r.Failed,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetPairResults devuelve los resultados por par de una ejecución, en el orden original.
// El error se reconstruye solo como mensaje: los sentinels no sobreviven a la DB,
// el Outcome sí.
func (s *SQLiteStorage) GetPairResults(ctx context.Context, runID string) ([]domain.PairResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT leg1, leg2, hedge_ratio, outcome, "window", entry_z, exit_z, stop_z,
		       pnl, trades, samples, eligible, error
		FROM pair_results
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetPairResults: query: %w", err)
	}
	defer rows.Close()

	var results []domain.PairResult
	for rows.Next() {
		var (
			res           domain.PairResult
			outcome, msg  string
			window        sql.NullInt64
			entryZ, exitZ sql.NullFloat64
			stopZ         sql.NullFloat64
		)
		if err := rows.Scan(
			&res.Pair.Leg1, &res.Pair.Leg2, &res.Pair.HedgeRatio,
			&outcome, &window, &entryZ, &exitZ, &stopZ,
			&res.Result.PnL, &res.Result.Trades, &res.Samples, &res.Eligible,
			&msg,
		); err != nil {
			return nil, fmt.Errorf("storage.GetPairResults: scan row: %w", err)
		}

		res.Outcome = domain.Outcome(outcome)
		if window.Valid {
			rec := domain.NewStrategyRecord(res.Pair, domain.ParameterSet{
				Window: int(window.Int64),
				EntryZ: entryZ.Float64,
				ExitZ:  exitZ.Float64,
				StopZ:  stopZ.Float64,
			})
			res.Record = &rec
		}
		if msg != "" {
			res.Err = errors.New(msg)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina ejecuciones antiguas; las filas de pair_results caen en cascada.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
