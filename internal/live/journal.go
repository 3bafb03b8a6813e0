package live

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// OrderJournal keeps sent actions and broker updates in DuckDB and mirrors
// them to orders.parquet and recvs.parquet in dir on Flush.
type OrderJournal struct {
	mu  sync.Mutex
	db  *sql.DB
	dir string
	sq  squirrel.StatementBuilderType
}

func NewOrderJournal(dir string) (*OrderJournal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistFailed, "failed to create journal directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistFailed, "failed to open DuckDB connection", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			ref TEXT,
			contract TEXT,
			t TIMESTAMP,
			kind TEXT,
			size DOUBLE,
			price DOUBLE,
			cancel_ref TEXT
		);
		CREATE TABLE IF NOT EXISTS recvs (
			id TEXT,
			ref TEXT,
			contract TEXT,
			t TIMESTAMP,
			status TEXT,
			code INTEGER,
			filled DOUBLE
		)
	`)
	if err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodePersistFailed, "failed to create journal tables", err)
	}

	return &OrderJournal{db: db, dir: dir, sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)}, nil
}

func (j *OrderJournal) RecordAction(req OrderRequest) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.sq.
		Insert("orders").
		Columns("ref", "contract", "t", "kind", "size", "price", "cancel_ref").
		Values(req.Ref, req.Contract.String(), req.Time, string(req.Action.Kind), req.Action.Size, req.Action.Price, req.Action.Ref).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistFailed, "failed to insert order", err)
	}

	return nil
}

func (j *OrderJournal) RecordRecv(contract types.Contract, recv types.OrderRecv) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.sq.
		Insert("recvs").
		Columns("id", "ref", "contract", "t", "status", "code", "filled").
		Values(recv.ID, recv.Ref(), contract.String(), recv.UpdateTime, string(recv.Status.Kind), recv.Status.Code, recv.Status.Filled).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistFailed, "failed to insert order update", err)
	}

	return nil
}

// Count returns the number of recorded actions and updates.
func (j *OrderJournal) Count() (orders, recvs int, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err = j.sq.Select("COUNT(*)").From("orders").RunWith(j.db).QueryRow().Scan(&orders); err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count orders", err)
	}

	if err = j.sq.Select("COUNT(*)").From("recvs").RunWith(j.db).QueryRow().Scan(&recvs); err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count order updates", err)
	}

	return orders, recvs, nil
}

// Flush exports both tables to parquet.
func (j *OrderJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, table := range []string{"orders", "recvs"} {
		path := filepath.Join(j.dir, table+".parquet")

		_, err := j.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY t ASC) TO '%s' (FORMAT PARQUET)`, table, path))
		if err != nil {
			return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to export %s", table)
		}
	}

	return nil
}

func (j *OrderJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.db.Close()
}
