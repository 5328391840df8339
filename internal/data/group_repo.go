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

// GroupRepo provides CRUD operations for permission groups.
type GroupRepo struct {
	DB   *sql.DB
	Time TimeProvider
}

// NewGroupRepo creates a new GroupRepo.
func NewGroupRepo(db *sql.DB, tp TimeProvider) *GroupRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &GroupRepo{DB: db, Time: tp}
}

type groupRow struct {
	ID          string       `db:"id"`
	Permissions []byte       `db:"permissions"`
	CreatedAt   sql.NullTime `db:"created_at"`
}

func (row groupRow) toGroup() (*model.Group, error) {
	group := &model.Group{ID: row.ID}
	var perms model.PermissionSet
	if len(row.Permissions) > 0 {
		if err := json.Unmarshal(row.Permissions, &perms); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	group.Permissions = perms.Normalize()
	if row.CreatedAt.Valid {
		group.CreatedAt = row.CreatedAt.Time
	}
	return group, nil
}

// initialGroupPermissions encodes the stored permission set for a new group.
// Creation cannot grant; grants come later through Update.
func initialGroupPermissions() ([]byte, error) {
	return json.Marshal(model.NoPermissions())
}

// Create inserts a new group with every permission denied.
func (r *GroupRepo) Create(ctx context.Context, req model.CreateGroupRequest) (*model.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	permissions, err := initialGroupPermissions()
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}

	var row groupRow
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO groups (id, permissions, created_at)
			VALUES ($1, $2::jsonb, $3)
			RETURNING id, permissions, created_at
		`, req.ID, permissions, r.Time.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[groupRow])
		return err
	})
	if err != nil {
		if isUniqueViolation(err, "groups_pkey") {
			return nil, ErrGroupAlreadyExists
		}
		return nil, fmt.Errorf("create group: %w", err)
	}
	return row.toGroup()
}

// GetByID fetches a group by ID.
func (r *GroupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var row groupRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT id, permissions, created_at FROM groups WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[groupRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return row.toGroup()
}

// GetByIDs returns the groups found for the given ids. Missing ids are
// simply absent from the result.
func (r *GroupRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rowsOut []groupRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, permissions, created_at
			FROM groups
			WHERE id = ANY($1)
			ORDER BY id ASC
		`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[groupRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get groups by ids: %w", err)
	}
	return groupRowsToGroups(rowsOut)
}

// List returns every group ordered by ID.
func (r *GroupRepo) List(ctx context.Context) ([]*model.Group, error) {
	var rowsOut []groupRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT id, permissions, created_at FROM groups ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[groupRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groupRowsToGroups(rowsOut)
}

// Update replaces the group's permission set.
func (r *GroupRepo) Update(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	permissions, err := json.Marshal(req.Permissions.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}

	var row groupRow
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE groups SET permissions = $2::jsonb
			WHERE id = $1
			RETURNING id, permissions, created_at
		`, id, permissions)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[groupRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return row.toGroup()
}

// Delete removes a group by ID. Memberships cascade via FK.
func (r *GroupRepo) Delete(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete group: %w", err)
	}
	return affected > 0, nil
}

func groupRowsToGroups(rows []groupRow) ([]*model.Group, error) {
	groups := make([]*model.Group, 0, len(rows))
	for i := range rows {
		group, err := rows[i].toGroup()
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}
