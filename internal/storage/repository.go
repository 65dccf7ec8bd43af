package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("storage: record not found")
)

const (
	insertResultSetSQL = `INSERT INTO result_sets (
        plot_title,
        rows_payload,
        hint_payload
    ) VALUES (
        $1,$2,$3
    )
    RETURNING id, plot_title, rows_payload, hint_payload, created_at;`

	listResultSetsBetweenSQL = `SELECT
        id,
        plot_title,
        rows_payload,
        hint_payload,
        created_at
    FROM result_sets
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at;`

	insertThumbnailSQL = `INSERT INTO thumbnails (
        id,
        result_set_id,
        plot_title,
        focus_series,
        status,
        point_count,
        series_count,
        latest_value,
        payload
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (id) DO UPDATE
    SET
        result_set_id = EXCLUDED.result_set_id,
        plot_title    = EXCLUDED.plot_title,
        focus_series  = EXCLUDED.focus_series,
        status        = EXCLUDED.status,
        point_count   = EXCLUDED.point_count,
        series_count  = EXCLUDED.series_count,
        latest_value  = EXCLUDED.latest_value,
        payload       = EXCLUDED.payload;`

	getThumbnailSQL = `SELECT
        id,
        result_set_id,
        plot_title,
        focus_series,
        status,
        point_count,
        series_count,
        latest_value,
        payload,
        created_at
    FROM thumbnails
    WHERE id = $1;`

	listRecentThumbnailsSQL = `SELECT
        id,
        result_set_id,
        plot_title,
        focus_series,
        status,
        point_count,
        series_count,
        latest_value,
        payload,
        created_at
    FROM thumbnails
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteThumbnailsBeforeSQL = `DELETE FROM thumbnails WHERE created_at < $1;`

	countThumbnailsSQL = `SELECT COUNT(*) FROM thumbnails;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ResultSetStore defines operations for captured result sets.
type ResultSetStore interface {
	InsertResultSet(ctx context.Context, rec ResultSetRecord) (ResultSetRecord, error)
	ListResultSetsBetween(ctx context.Context, from, to time.Time) ([]ResultSetRecord, error)
}

// ThumbnailStore defines operations for thumbnail persistence.
type ThumbnailStore interface {
	InsertThumbnail(ctx context.Context, rec ThumbnailRecord) error
	GetThumbnail(ctx context.Context, id string) (ThumbnailRecord, error)
	ListRecentThumbnails(ctx context.Context, limit int) ([]ThumbnailRecord, error)
	DeleteThumbnailsBefore(ctx context.Context, olderThan time.Time) (int64, error)
	CountThumbnails(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to result sets and thumbnails.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertResultSet persists a captured result set and returns the stored row.
func (s *Store) InsertResultSet(ctx context.Context, rec ResultSetRecord) (ResultSetRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return ResultSetRecord{}, err
	}

	var hint interface{}
	if len(rec.Hint) > 0 {
		hint = []byte(rec.Hint)
	}

	row := pool.QueryRow(ctx, insertResultSetSQL,
		rec.PlotTitle,
		[]byte(rec.Rows),
		hint,
	)

	stored, scanErr := scanResultSet(row)
	if scanErr != nil {
		return ResultSetRecord{}, fmt.Errorf("insert result set: %w", scanErr)
	}
	return stored, nil
}

// ListResultSetsBetween lists captured result sets within a time window.
func (s *Store) ListResultSetsBetween(ctx context.Context, from, to time.Time) ([]ResultSetRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listResultSetsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list result sets between: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ResultSetRecord, 0)
	for rows.Next() {
		rec, scanErr := scanResultSet(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// InsertThumbnail persists or replaces a derived thumbnail.
func (s *Store) InsertThumbnail(ctx context.Context, rec ThumbnailRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var resultSetID interface{}
	if rec.ResultSetID != nil {
		resultSetID = *rec.ResultSetID
	}

	var focus interface{}
	if rec.FocusSeries != nil {
		focus = *rec.FocusSeries
	}

	var latest interface{}
	if rec.LatestValue != nil {
		latest = rec.LatestValue.String()
	}

	_, execErr := pool.Exec(ctx, insertThumbnailSQL,
		rec.ID,
		resultSetID,
		rec.PlotTitle,
		focus,
		rec.Status,
		rec.PointCount,
		rec.SeriesCount,
		latest,
		[]byte(rec.Payload),
	)
	if execErr != nil {
		return fmt.Errorf("insert thumbnail: %w", execErr)
	}
	return nil
}

// GetThumbnail fetches a single thumbnail by id.
func (s *Store) GetThumbnail(ctx context.Context, id string) (ThumbnailRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return ThumbnailRecord{}, err
	}

	rec, scanErr := scanThumbnail(pool.QueryRow(ctx, getThumbnailSQL, id))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ThumbnailRecord{}, fmt.Errorf("get thumbnail %s: %w", id, ErrNotFound)
		}
		return ThumbnailRecord{}, fmt.Errorf("get thumbnail: %w", scanErr)
	}
	return rec, nil
}

// ListRecentThumbnails lists most recent thumbnails ordered by creation time.
func (s *Store) ListRecentThumbnails(ctx context.Context, limit int) ([]ThumbnailRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentThumbnailsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent thumbnails: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ThumbnailRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanThumbnail(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// DeleteThumbnailsBefore deletes thumbnails older than the cutoff and
// reports how many rows went away.
func (s *Store) DeleteThumbnailsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteThumbnailsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete thumbnails before: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// CountThumbnails counts stored thumbnails.
func (s *Store) CountThumbnails(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countThumbnailsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count thumbnails: %w", scanErr)
	}
	return count, nil
}

// rowScanner lets scan helpers work for both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResultSet(row rowScanner) (ResultSetRecord, error) {
	var rec ResultSetRecord
	if err := row.Scan(
		&rec.ID,
		&rec.PlotTitle,
		&rec.Rows,
		&rec.Hint,
		&rec.CreatedAt,
	); err != nil {
		return ResultSetRecord{}, err
	}
	return rec, nil
}

func scanThumbnail(row rowScanner) (ThumbnailRecord, error) {
	var (
		rec         ThumbnailRecord
		resultSetID sql.NullInt64
		focus       sql.NullString
		latestStr   sql.NullString
	)

	if err := row.Scan(
		&rec.ID,
		&resultSetID,
		&rec.PlotTitle,
		&focus,
		&rec.Status,
		&rec.PointCount,
		&rec.SeriesCount,
		&latestStr,
		&rec.Payload,
		&rec.CreatedAt,
	); err != nil {
		return ThumbnailRecord{}, err
	}

	if resultSetID.Valid {
		value := resultSetID.Int64
		rec.ResultSetID = &value
	}
	if focus.Valid {
		name := focus.String
		rec.FocusSeries = &name
	}
	if latestStr.Valid {
		latest, convErr := decimal.NewFromString(latestStr.String)
		if convErr != nil {
			return ThumbnailRecord{}, fmt.Errorf("parse latest value: %w", convErr)
		}
		rec.LatestValue = &latest
	}

	return rec, nil
}
