package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seqdepot/seqdepot/internal/data/database"
	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// UploadRepo provides CRUD operations for uploaded files.
type UploadRepo struct {
	DB   *sql.DB
	Time TimeProvider
}

// NewUploadRepo creates a new UploadRepo.
func NewUploadRepo(db *sql.DB, tp TimeProvider) *UploadRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &UploadRepo{DB: db, Time: tp}
}

func uploadColumnList() []string {
	return []string{
		"id", "name", "name_on_disk", "type", "size", "user_id",
		"ready", "reserved", "removed", "removed_at", "uploaded_at", "created_at",
	}
}

const uploadColumns = `id, name, name_on_disk, type, size, user_id,
	ready, reserved, removed, removed_at, uploaded_at, created_at`

// Create inserts a new upload row and derives its on-disk name from the
// generated ID.
func (r *UploadRepo) Create(ctx context.Context, upload *model.Upload) (*model.Upload, error) {
	if upload == nil {
		return nil, errors.New("upload is required")
	}

	var out model.Upload
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var id int64
			if err := tx.QueryRow(ctx, `
				INSERT INTO uploads (name, name_on_disk, type, user_id, created_at)
				VALUES ($1, '', $2, $3, $4)
				RETURNING id
			`, upload.Name, upload.Type, upload.UserID, r.Time.Now().UTC()).Scan(&id); err != nil {
				return err
			}

			rows, err := tx.Query(ctx, `
				UPDATE uploads SET name_on_disk = $2
				WHERE id = $1
				RETURNING `+uploadColumns+`
			`, id, model.UploadNameOnDisk(id, upload.Name))
			if err != nil {
				return err
			}
			defer rows.Close()
			out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Upload])
			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	return &out, nil
}

// GetByID fetches an upload by ID, including removed and unfinished rows.
func (r *UploadRepo) GetByID(ctx context.Context, id int64) (*model.Upload, error) {
	var out model.Upload
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Upload])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return &out, nil
}

// Finalize records the byte size and marks the upload ready.
func (r *UploadRepo) Finalize(ctx context.Context, id int64, size int64) (*model.Upload, error) {
	var out model.Upload
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE uploads
			SET size = $2, ready = TRUE, uploaded_at = $3
			WHERE id = $1 AND removed = FALSE
			RETURNING `+uploadColumns+`
		`, id, size, r.Time.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Upload])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}
	return &out, nil
}

// Find lists uploads that are ready and not removed using the query builder.
func (r *UploadRepo) Find(ctx context.Context, opts model.UploadListOptions) ([]*model.Upload, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	queryOpts := []database.ListQueryOption{
		database.WithColumns(uploadColumnList()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("created_at", "DESC"),
		database.WithCondition(database.WhereCond("ready", database.Equal, true)),
		database.WithCondition(database.WhereCond("removed", database.Equal, false)),
	}
	if opts.Type != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("type", database.Equal, string(*opts.Type)),
		))
	}
	if opts.UserID != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("user_id", database.Equal, *opts.UserID),
		))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("uploads", queryOpts...))

	var uploads []*model.Upload
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		uploads, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Upload])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find uploads: %w", err)
	}
	return uploads, nil
}

// SetRemoved soft-deletes the upload and returns it for file cleanup.
// Already-removed uploads report not found so deletion is not repeatable.
func (r *UploadRepo) SetRemoved(ctx context.Context, id int64) (*model.Upload, error) {
	var out model.Upload
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE uploads
			SET removed = TRUE, removed_at = $2
			WHERE id = $1 AND removed = FALSE
			RETURNING `+uploadColumns+`
		`, id, r.Time.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Upload])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("remove upload: %w", err)
	}
	return &out, nil
}

// Reserve marks the uploads as attached to a workflow.
func (r *UploadRepo) Reserve(ctx context.Context, ids []int64) error {
	return r.setReserved(ctx, ids, true)
}

// Release returns the uploads to the unreserved pool.
func (r *UploadRepo) Release(ctx context.Context, ids []int64) error {
	return r.setReserved(ctx, ids, false)
}

func (r *UploadRepo) setReserved(ctx context.Context, ids []int64, reserved bool) error {
	if len(ids) == 0 {
		return nil
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx,
			`UPDATE uploads SET reserved = $2 WHERE id = ANY($1)`, ids, reserved)
		return err
	})
	if err != nil {
		return fmt.Errorf("set uploads reserved: %w", err)
	}
	return nil
}
