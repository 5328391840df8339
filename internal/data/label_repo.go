package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

const labelColumns = `id, name, color, description, created_at`

// LabelRepo provides CRUD operations for sample labels.
type LabelRepo struct {
	DB   *sql.DB
	Time TimeProvider
}

// NewLabelRepo creates a new LabelRepo.
func NewLabelRepo(db *sql.DB, tp TimeProvider) *LabelRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &LabelRepo{DB: db, Time: tp}
}

// Create inserts a new label. Label names are unique.
func (r *LabelRepo) Create(ctx context.Context, req model.CreateLabelRequest) (*model.Label, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var label model.Label
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO labels (name, color, description, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING `+labelColumns+`
		`, strings.TrimSpace(req.Name), req.Color, req.Description, r.Time.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		label, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Label])
		return err
	})
	if err != nil {
		if isUniqueViolation(err, "labels_name_key") {
			return nil, ErrLabelNameExists
		}
		return nil, fmt.Errorf("create label: %w", err)
	}
	return &label, nil
}

// GetByID fetches a label by ID.
func (r *LabelRepo) GetByID(ctx context.Context, id int64) (*model.Label, error) {
	var label model.Label
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+labelColumns+` FROM labels WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		label, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Label])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLabelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get label: %w", err)
	}
	return &label, nil
}

// List returns every label ordered by name.
func (r *LabelRepo) List(ctx context.Context) ([]*model.Label, error) {
	var labels []*model.Label
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+labelColumns+` FROM labels ORDER BY name ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		labels, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Label])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

// Update applies a partial update to a label. Nil fields are left unchanged.
func (r *LabelRepo) Update(ctx context.Context, id int64, req model.UpdateLabelRequest) (*model.Label, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.IsZero() {
		return r.GetByID(ctx, id)
	}

	query, args := buildLabelUpdateSQL(id, req)

	var label model.Label
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		label, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Label])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLabelNotFound
	}
	if err != nil {
		if isUniqueViolation(err, "labels_name_key") {
			return nil, ErrLabelNameExists
		}
		return nil, fmt.Errorf("update label: %w", err)
	}
	return &label, nil
}

// Delete removes a label by ID.
func (r *LabelRepo) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM labels WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete label: %w", err)
	}
	return affected > 0, nil
}

func buildLabelUpdateSQL(id int64, req model.UpdateLabelRequest) (string, []any) {
	setClauses := []string{}
	args := []any{id}
	argPos := 2

	addClause := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if req.Name != nil {
		addClause("name", strings.TrimSpace(*req.Name))
	}
	if req.Color != nil {
		addClause("color", *req.Color)
	}
	if req.Description != nil {
		addClause("description", *req.Description)
	}

	query := fmt.Sprintf(`
		UPDATE labels SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setClauses, ", "), labelColumns)
	return query, args
}

var _ core.LabelRepository = (*LabelRepo)(nil)
