package pricestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// ParquetSource reads and writes bar series as parquet files through an
// in-memory DuckDB connection. Files carry the columns
// time, open, high, low, close, volume.
type ParquetSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewParquetSource opens the DuckDB connection.
func NewParquetSource(log *logger.Logger) (*ParquetSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailure, "failed to open DuckDB connection", err)
	}

	return &ParquetSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Load reads the bars in [start, end] ordered by time and validates them.
func (s *ParquetSource) Load(path string, start, end optional.Option[time.Time]) (*PriceStore, error) {
	s.logger.Debug("Loading parquet bars", zap.String("path", path))

	query := s.sq.Select("time", "open", "high", "low", "close", "volume").
		From(fmt.Sprintf("read_parquet('%s')", escapeLiteral(path))).
		OrderBy("time ASC")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bar query", err)
	}

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query %s", path)
	}
	defer rows.Close()

	store := New(4096)

	for rows.Next() {
		var (
			t              time.Time
			o, h, l, c, vo float64
		)

		if err := rows.Scan(&t, &o, &h, &l, &c, &vo); err != nil {
			return nil, errors.NewRowError(errors.ErrCodeMalformedInput, store.Len(), "failed to scan bar: %v", err)
		}

		store.push(types.Bar{
			T:  t,
			O:  float32(o),
			H:  float32(h),
			L:  float32(l),
			C:  float32(c),
			V:  float32(vo),
			Ki: types.BarKey{OpenTime: t, PassThis: 1, PassLast: 0},
		}, false)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bars", err)
	}

	if err := store.Validate(); err != nil {
		return nil, err
	}

	return store, nil
}

// Write exports the store to a parquet file at path.
func (s *ParquetSource) Write(store *PriceStore, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailure, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE OR REPLACE TEMP TABLE bars (
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailure, "failed to create bars table", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO bars VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailure, "failed to prepare insert", err)
	}
	defer stmt.Close()

	for i := 0; i < store.Len(); i++ {
		if _, err := stmt.Exec(store.T[i], float64(store.O[i]), float64(store.H[i]),
			float64(store.L[i]), float64(store.C[i]), float64(store.V[i])); err != nil {
			return errors.NewRowError(errors.ErrCodeDataSourceFailure, i, "failed to insert bar: %v", err)
		}
	}

	if _, err := tx.Exec(fmt.Sprintf(`COPY bars TO '%s' (FORMAT PARQUET)`, escapeLiteral(path))); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailure, "failed to export parquet", err)
	}

	return tx.Commit()
}

// Close releases the DuckDB connection.
func (s *ParquetSource) Close() error {
	return s.db.Close()
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
