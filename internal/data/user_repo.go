package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// UserRepo provides CRUD operations for user accounts.
//
// Group membership lives in the user_groups join table; every read
// aggregates it back into the Groups slice so callers always see a complete
// user document.
type UserRepo struct {
	DB   *sql.DB
	Time TimeProvider
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB, tp TimeProvider) *UserRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &UserRepo{DB: db, Time: tp}
}

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserHandleExists is returned when creating or renaming to an existing handle.
	ErrUserHandleExists = errors.New("user handle already exists")
)

const userSelectColumns = `
	u.id, u.handle, u.administrator,
	COALESCE(array_remove(array_agg(ug.group_id ORDER BY ug.group_id), NULL), '{}')::text[] AS groups,
	u.primary_group, u.permissions, u.password, u.force_reset, u.invalidate_sessions,
	u.last_password_change, u.remote_id, u.created_at`

const userSelectBase = `
	SELECT ` + userSelectColumns + `
	FROM users u
	LEFT JOIN user_groups ug ON ug.user_id = u.id`

const userGroupBy = ` GROUP BY u.id`

// userRow is the scan shape for user queries; permissions arrive as jsonb.
type userRow struct {
	ID                 string    `db:"id"`
	Handle             string    `db:"handle"`
	Administrator      bool      `db:"administrator"`
	Groups             []string  `db:"groups"`
	PrimaryGroup       string    `db:"primary_group"`
	Permissions        []byte    `db:"permissions"`
	Password           []byte    `db:"password"`
	ForceReset         bool      `db:"force_reset"`
	InvalidateSessions bool      `db:"invalidate_sessions"`
	LastPasswordChange sql.NullTime `db:"last_password_change"`
	RemoteID           string    `db:"remote_id"`
	CreatedAt          sql.NullTime `db:"created_at"`
}

func (row userRow) toUser() (*model.User, error) {
	user := &model.User{
		ID:                 row.ID,
		Handle:             row.Handle,
		Administrator:      row.Administrator,
		Groups:             row.Groups,
		PrimaryGroup:       row.PrimaryGroup,
		Password:           row.Password,
		ForceReset:         row.ForceReset,
		InvalidateSessions: row.InvalidateSessions,
		RemoteID:           row.RemoteID,
	}
	if row.LastPasswordChange.Valid {
		user.LastPasswordChange = row.LastPasswordChange.Time
	}
	if row.CreatedAt.Valid {
		user.CreatedAt = row.CreatedAt.Time
	}
	var perms model.PermissionSet
	if len(row.Permissions) > 0 {
		if err := json.Unmarshal(row.Permissions, &perms); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	user.Permissions = perms.Normalize()
	return user, nil
}

func (r *UserRepo) getUserByQuery(ctx context.Context, where string, arg any) (*model.User, error) {
	query := userSelectBase + " WHERE " + where + userGroupBy

	var row userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toUser()
}

// Create inserts a new user and its group memberships.
func (r *UserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}

	permissions, err := json.Marshal(user.Permissions.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}

	now := r.Time.Now().UTC()

	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (
					id, handle, administrator, primary_group, permissions,
					password, force_reset, invalidate_sessions,
					last_password_change, remote_id, created_at
				)
				VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11)
			`, user.ID, user.Handle, user.Administrator, user.PrimaryGroup, permissions,
				user.Password, user.ForceReset, user.InvalidateSessions,
				now, user.RemoteID, now)
			if err != nil {
				return err
			}
			return insertUserGroups(ctx, tx, user.ID, user.Groups)
		},
	})
	if err != nil {
		if isUniqueViolation(err, "users_handle_key") {
			return nil, ErrUserHandleExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return r.GetByID(ctx, user.ID)
}

// GetByID fetches a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUserByQuery(ctx, "u.id = $1", id)
}

// GetByHandle fetches a user by handle.
func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*model.User, error) {
	return r.getUserByQuery(ctx, "u.handle = $1", handle)
}

// GetByRemoteID fetches a user by the identity provider's stable subject.
func (r *UserRepo) GetByRemoteID(ctx context.Context, remoteID string) (*model.User, error) {
	return r.getUserByQuery(ctx, "u.remote_id = $1 AND u.remote_id <> ''", remoteID)
}

// List returns users ordered by handle with pagination.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := userSelectBase + userGroupBy + ` ORDER BY u.handle ASC LIMIT $1 OFFSET $2`

	var rowsOut []userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]*model.User, 0, len(rowsOut))
	for i := range rowsOut {
		user, convErr := rowsOut[i].toUser()
		if convErr != nil {
			return nil, convErr
		}
		users = append(users, user)
	}
	return users, nil
}

// ListByGroup returns every user who is a member of the given group.
func (r *UserRepo) ListByGroup(ctx context.Context, groupID string) ([]*model.User, error) {
	query := userSelectBase +
		` WHERE u.id IN (SELECT user_id FROM user_groups WHERE group_id = $1)` +
		userGroupBy + ` ORDER BY u.handle ASC`

	var rowsOut []userRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, groupID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[userRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users by group: %w", err)
	}

	users := make([]*model.User, 0, len(rowsOut))
	for i := range rowsOut {
		user, convErr := rowsOut[i].toUser()
		if convErr != nil {
			return nil, convErr
		}
		users = append(users, user)
	}
	return users, nil
}

// HandleExists reports whether any user has the given handle.
func (r *UserRepo) HandleExists(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE handle = $1)`, handle,
		).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("check handle: %w", err)
	}
	return exists, nil
}

// buildUserUpdateSQL constructs the UPDATE statement for the set scalar
// fields of a partial update. Group membership is handled separately.
func buildUserUpdateSQL(id string, update model.UserUpdate) (string, []any, error) {
	setParts := make([]string, 0, 8)
	args := make([]any, 0, 9)
	argIdx := 1

	add := func(column string, value any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if update.Administrator != nil {
		add("administrator", *update.Administrator)
	}
	if update.ForceReset != nil {
		add("force_reset", *update.ForceReset)
	}
	if update.InvalidateSessions != nil {
		add("invalidate_sessions", *update.InvalidateSessions)
	}
	if update.Permissions != nil {
		permissions, err := json.Marshal(update.Permissions.Normalize())
		if err != nil {
			return "", nil, fmt.Errorf("encode permissions: %w", err)
		}
		setParts = append(setParts, fmt.Sprintf("permissions = $%d::jsonb", argIdx))
		args = append(args, permissions)
		argIdx++
	}
	if update.PrimaryGroup != nil {
		add("primary_group", *update.PrimaryGroup)
	}
	if update.Password != nil {
		add("password", update.Password)
	}
	if update.LastPasswordChange != nil {
		add("last_password_change", update.LastPasswordChange.UTC())
	}

	if len(setParts) == 0 {
		return "", nil, nil
	}

	args = append(args, id)
	query := "UPDATE users SET " + strings.Join(setParts, ", ") +
		fmt.Sprintf(" WHERE id = $%d", argIdx)
	return query, args, nil
}

// Update applies the set fields of the partial update and returns the
// updated document. The scalar columns and the group membership rewrite
// commit in one transaction.
func (r *UserRepo) Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	if update.IsZero() {
		return r.GetByID(ctx, id)
	}

	query, args, err := buildUserUpdateSQL(id, update)
	if err != nil {
		return nil, err
	}

	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			if query != "" {
				ct, execErr := tx.Exec(ctx, query, args...)
				if execErr != nil {
					return execErr
				}
				if ct.RowsAffected() == 0 {
					return pgx.ErrNoRows
				}
			}
			if update.Groups != nil {
				if _, delErr := tx.Exec(ctx,
					`DELETE FROM user_groups WHERE user_id = $1`, id); delErr != nil {
					return delErr
				}
				return insertUserGroups(ctx, tx, id, *update.Groups)
			}
			return nil
		},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes a user by ID. Memberships cascade via FK.
func (r *UserRepo) Delete(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return affected > 0, nil
}

func insertUserGroups(ctx context.Context, tx pgx.Tx, userID string, groups []string) error {
	for _, groupID := range groups {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_groups (user_id, group_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, userID, groupID); err != nil {
			return err
		}
	}
	return nil
}
