package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// CacheRepo provides read and repair operations for trimming caches.
//
// Caches are written by workflow runners; the API only reads them and runs
// the startup fixups that repair rows left behind by older releases.
type CacheRepo struct {
	DB *sql.DB
}

// NewCacheRepo creates a new CacheRepo.
func NewCacheRepo(db *sql.DB) *CacheRepo {
	return &CacheRepo{DB: db}
}

// key and missing are nullable for legacy rows the startup fixups repair.
const cacheColumns = `id, COALESCE(key, '') AS key, sample_id, program, files,
	COALESCE(missing, FALSE) AS missing, ready, created_at`

// GetByID fetches a cache by ID.
func (r *CacheRepo) GetByID(ctx context.Context, id string) (*model.Cache, error) {
	return r.getCacheByQuery(ctx, "id = $1", id)
}

// GetBySampleAndKey finds a reusable cache for the sample whose trimming
// fingerprint matches key.
func (r *CacheRepo) GetBySampleAndKey(ctx context.Context, sampleID, key string) (*model.Cache, error) {
	var out model.Cache
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+cacheColumns+`
			FROM caches
			WHERE sample_id = $1 AND key = $2 AND ready = TRUE AND missing = FALSE
		`, sampleID, key)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Cache])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache by sample and key: %w", err)
	}
	return &out, nil
}

// ListBySample returns every cache attached to a sample.
func (r *CacheRepo) ListBySample(ctx context.Context, sampleID string) ([]*model.Cache, error) {
	var caches []*model.Cache
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+cacheColumns+`
			FROM caches
			WHERE sample_id = $1
			ORDER BY created_at DESC, id DESC
		`, sampleID)
		if err != nil {
			return err
		}
		defer rows.Close()
		caches, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Cache])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list caches by sample: %w", err)
	}
	return caches, nil
}

// SetMissing marks a cache whose backing files were lost.
func (r *CacheRepo) SetMissing(ctx context.Context, id string) (int, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx,
			`UPDATE caches SET missing = TRUE WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("set cache missing: %w", err)
	}
	return int(affected), nil
}

// EnsureMissingFlag backfills missing = FALSE on rows created before the
// column existed. Running it again touches nothing.
func (r *CacheRepo) EnsureMissingFlag(ctx context.Context) (int64, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx,
			`UPDATE caches SET missing = FALSE WHERE missing IS NULL`)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ensure cache missing flag: %w", err)
	}
	return affected, nil
}

// RenameHashField copies legacy trimming fingerprints stored in the hash
// column into key and clears the legacy value. Running it again touches
// nothing.
func (r *CacheRepo) RenameHashField(ctx context.Context) (int64, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE caches
			SET key = hash, hash = NULL
			WHERE key IS NULL AND hash IS NOT NULL
		`)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rename cache hash field: %w", err)
	}
	return affected, nil
}

func (r *CacheRepo) getCacheByQuery(ctx context.Context, where string, arg any) (*model.Cache, error) {
	var out model.Cache
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+cacheColumns+` FROM caches WHERE `+where, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Cache])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache: %w", err)
	}
	return &out, nil
}
