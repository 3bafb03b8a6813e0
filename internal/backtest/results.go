package backtest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// ResultsWriter collects run results in an in-memory DuckDB and exports them
// as parquet files.
type ResultsWriter struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewResultsWriter(log *logger.Logger) (*ResultsWriter, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to open database", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	w := &ResultsWriter{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := w.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return w, nil
}

func (w *ResultsWriter) initialize() error {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS pnl (
			job_id TEXT,
			di TEXT,
			ptm TEXT,
			bar INTEGER,
			t TIMESTAMP,
			pnl_delta DOUBLE,
			position DOUBLE,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create pnl table", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			job_id TEXT,
			bar INTEGER,
			t TIMESTAMP,
			kind TEXT,
			size DOUBLE,
			price DOUBLE,
			commission DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create trades table", err)
	}

	return nil
}

// Add stores one result.
func (w *ResultsWriter) Add(r Result) error {
	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to begin transaction", err)
	}

	for i := range r.Res.T {
		_, err = w.sq.
			Insert("pnl").
			Columns("job_id", "di", "ptm", "bar", "t", "pnl_delta", "position", "equity").
			Values(r.JobID, r.DI, r.Ptm, i, r.Res.T[i], r.Res.PnlDelta[i], r.Res.Position[i], r.Res.Equity[i]).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to insert pnl row %d", i)
		}
	}

	for _, f := range r.Res.Trades {
		_, err = w.sq.
			Insert("trades").
			Columns("job_id", "bar", "t", "kind", "size", "price", "commission").
			Values(r.JobID, f.Bar, f.T, string(f.Action.Kind), f.Action.Size, f.Action.Price, f.Commission).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit results", err)
	}

	return nil
}

// JobTotals is the per-job aggregate read back from the pnl and trades tables.
type JobTotals struct {
	JobID  string
	Pnl    float64
	Trades int
	Fees   float64
}

// Totals returns the P&L, trade count and fees of jobID.
func (w *ResultsWriter) Totals(jobID string) (JobTotals, error) {
	totals := JobTotals{JobID: jobID}

	err := w.sq.
		Select("COALESCE(SUM(pnl_delta), 0)").
		From("pnl").
		Where(squirrel.Eq{"job_id": jobID}).
		RunWith(w.db).
		QueryRow().
		Scan(&totals.Pnl)
	if err != nil {
		return totals, errors.Wrap(errors.ErrCodeQueryFailed, "failed to sum pnl", err)
	}

	err = w.sq.
		Select("COUNT(*)", "COALESCE(SUM(commission), 0)").
		From("trades").
		Where(squirrel.Eq{"job_id": jobID}).
		RunWith(w.db).
		QueryRow().
		Scan(&totals.Trades, &totals.Fees)
	if err != nil {
		return totals, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count trades", err)
	}

	return totals, nil
}

// Write exports both tables to path/pnl.parquet and path/trades.parquet.
func (w *ResultsWriter) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create directory", err)
	}

	// squirrel has no COPY
	pnlPath := filepath.Join(path, "pnl.parquet")
	if _, err := w.db.Exec(fmt.Sprintf(`COPY pnl TO '%s' (FORMAT PARQUET)`, pnlPath)); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to export pnl to parquet", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")
	if _, err := w.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to export trades to parquet", err)
	}

	w.logger.Info("Exported backtest results",
		zap.String("pnl", pnlPath),
		zap.String("trades", tradesPath),
	)

	return nil
}

func (w *ResultsWriter) Close() error {
	return w.db.Close()
}
