package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// KeyRepo provides CRUD operations for API keys.
type KeyRepo struct {
	DB   *sql.DB
	Time TimeProvider
}

// NewKeyRepo creates a new KeyRepo.
func NewKeyRepo(db *sql.DB, tp TimeProvider) *KeyRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &KeyRepo{DB: db, Time: tp}
}

const keyColumns = `id, name, prefix, secret, user_id, administrator, groups, permissions, created_at`

type keyRow struct {
	ID            string       `db:"id"`
	Name          string       `db:"name"`
	Prefix        string       `db:"prefix"`
	Secret        []byte       `db:"secret"`
	UserID        string       `db:"user_id"`
	Administrator bool         `db:"administrator"`
	Groups        []string     `db:"groups"`
	Permissions   []byte       `db:"permissions"`
	CreatedAt     sql.NullTime `db:"created_at"`
}

func (row keyRow) toKey() (*model.Key, error) {
	key := &model.Key{
		ID:            row.ID,
		Name:          row.Name,
		Prefix:        row.Prefix,
		Secret:        row.Secret,
		UserID:        row.UserID,
		Administrator: row.Administrator,
		Groups:        row.Groups,
	}
	var perms model.PermissionSet
	if len(row.Permissions) > 0 {
		if err := json.Unmarshal(row.Permissions, &perms); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	key.Permissions = perms.Normalize()
	if row.CreatedAt.Valid {
		key.CreatedAt = row.CreatedAt.Time
	}
	return key, nil
}

// Create inserts a new API key.
func (r *KeyRepo) Create(ctx context.Context, key *model.Key) (*model.Key, error) {
	if key == nil {
		return nil, errors.New("key is required")
	}

	permissions, err := json.Marshal(key.Permissions.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}

	var row keyRow
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO keys (
				id, name, prefix, secret, user_id,
				administrator, groups, permissions, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
			RETURNING `+keyColumns+`
		`, key.ID, key.Name, key.Prefix, key.Secret, key.UserID,
			key.Administrator, key.Groups, permissions, r.Time.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[keyRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}
	return row.toKey()
}

func (r *KeyRepo) getKeyByQuery(ctx context.Context, where string, arg any) (*model.Key, error) {
	var row keyRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+keyColumns+` FROM keys WHERE `+where, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[keyRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	return row.toKey()
}

// GetByID fetches a key by ID.
func (r *KeyRepo) GetByID(ctx context.Context, id string) (*model.Key, error) {
	return r.getKeyByQuery(ctx, "id = $1", id)
}

// GetBySecret resolves a key by the digest of its bearer value.
func (r *KeyRepo) GetBySecret(ctx context.Context, secret []byte) (*model.Key, error) {
	return r.getKeyByQuery(ctx, "secret = $1", secret)
}

// ListByUser returns the user's keys ordered by creation time.
func (r *KeyRepo) ListByUser(ctx context.Context, userID string) ([]*model.Key, error) {
	var rowsOut []keyRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+keyColumns+`
			FROM keys
			WHERE user_id = $1
			ORDER BY created_at ASC, id ASC
		`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[keyRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	keys := make([]*model.Key, 0, len(rowsOut))
	for i := range rowsOut {
		key, convErr := rowsOut[i].toKey()
		if convErr != nil {
			return nil, convErr
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// CountByPrefix returns how many of the user's keys share a name prefix.
func (r *KeyRepo) CountByPrefix(ctx context.Context, userID, prefix string) (int, error) {
	var count int
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM keys WHERE user_id = $1 AND prefix = $2`,
			userID, prefix,
		).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count keys by prefix: %w", err)
	}
	return count, nil
}

// SetPermissions replaces a key's own permission set.
func (r *KeyRepo) SetPermissions(ctx context.Context, id string, permissions model.PermissionSet) (*model.Key, error) {
	encoded, err := json.Marshal(permissions.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}

	var row keyRow
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE keys SET permissions = $2::jsonb
			WHERE id = $1
			RETURNING `+keyColumns+`
		`, id, encoded)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[keyRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set key permissions: %w", err)
	}
	return row.toKey()
}

// Delete removes a key by ID.
func (r *KeyRepo) Delete(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM keys WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete key: %w", err)
	}
	return affected > 0, nil
}

// DeleteByUser removes every key owned by the user.
func (r *KeyRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM keys WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete keys by user: %w", err)
	}
	return int(affected), nil
}

// UpdateAuthorizationForUser rewrites the authorization snapshot on every
// key owned by the user. Administrator and group snapshots are replaced;
// key permissions follow the ratchet rule, losing what the user lost and
// gaining nothing.
//
// Rows are locked and rewritten in one transaction so a concurrent edit
// cannot interleave partial snapshots. The rewrite is idempotent.
func (r *KeyRepo) UpdateAuthorizationForUser(
	ctx context.Context,
	userID string,
	update model.AuthorizationUpdate,
) (int, error) {
	target := update.Permissions.Normalize()
	updated := 0

	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, `
				SELECT id, permissions FROM keys
				WHERE user_id = $1
				ORDER BY id ASC
				FOR UPDATE
			`, userID)
			if err != nil {
				return err
			}

			type lockedKey struct {
				id          string
				permissions []byte
			}
			var locked []lockedKey
			for rows.Next() {
				var lk lockedKey
				if scanErr := rows.Scan(&lk.id, &lk.permissions); scanErr != nil {
					rows.Close()
					return scanErr
				}
				locked = append(locked, lk)
			}
			rows.Close()
			if rowsErr := rows.Err(); rowsErr != nil {
				return rowsErr
			}

			for _, lk := range locked {
				var current model.PermissionSet
				if len(lk.permissions) > 0 {
					if decodeErr := json.Unmarshal(lk.permissions, &current); decodeErr != nil {
						return fmt.Errorf("decode key permissions: %w", decodeErr)
					}
				}
				ratcheted, encodeErr := json.Marshal(model.RatchetPermissions(current, target))
				if encodeErr != nil {
					return fmt.Errorf("encode key permissions: %w", encodeErr)
				}
				if _, execErr := tx.Exec(ctx, `
					UPDATE keys
					SET administrator = $2, groups = $3, permissions = $4::jsonb
					WHERE id = $1
				`, lk.id, update.Administrator, update.Groups, ratcheted); execErr != nil {
					return execErr
				}
				updated++
			}
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("update key authorization: %w", err)
	}
	return updated, nil
}
