package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seqdepot/seqdepot/internal/core"
	"github.com/seqdepot/seqdepot/internal/data/cryptoutil"
	"github.com/seqdepot/seqdepot/internal/data/pgxutil"
	"github.com/seqdepot/seqdepot/internal/domain/model"
)

const webhookSinkColumns = `id, name, uri, method, filter, token, ok_status, retry, enabled, created_at`

// Defaults applied when a create request leaves the field unset.
const (
	defaultWebhookOkStatus = 200
	defaultWebhookRetry    = 3
)

// WebhookSinkRepo provides CRUD operations for webhook sinks. Bearer tokens
// are encrypted at rest and decrypted on read.
type WebhookSinkRepo struct {
	DB   *sql.DB
	Enc  cryptoutil.Encryptor
	Time TimeProvider
}

// NewWebhookSinkRepo creates a new WebhookSinkRepo.
func NewWebhookSinkRepo(db *sql.DB, enc cryptoutil.Encryptor, tp TimeProvider) *WebhookSinkRepo {
	if enc == nil {
		enc = cryptoutil.NoopEncryptor{}
	}
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &WebhookSinkRepo{DB: db, Enc: enc, Time: tp}
}

type webhookSinkRow struct {
	ID        string       `db:"id"`
	Name      string       `db:"name"`
	URI       string       `db:"uri"`
	Method    string       `db:"method"`
	Filter    *string      `db:"filter"`
	Token     *string      `db:"token"`
	OkStatus  int          `db:"ok_status"`
	Retry     int          `db:"retry"`
	Enabled   bool         `db:"enabled"`
	CreatedAt sql.NullTime `db:"created_at"`
}

func (r *WebhookSinkRepo) toSink(row webhookSinkRow) (*model.WebhookSink, error) {
	sink := &model.WebhookSink{
		ID:       row.ID,
		Name:     row.Name,
		URI:      row.URI,
		Method:   row.Method,
		Filter:   row.Filter,
		OkStatus: row.OkStatus,
		Retry:    row.Retry,
		Enabled:  row.Enabled,
	}
	if row.CreatedAt.Valid {
		sink.CreatedAt = row.CreatedAt.Time
	}
	if row.Token != nil && *row.Token != "" {
		pt, err := r.Enc.Decrypt(*row.Token)
		if err != nil {
			return nil, fmt.Errorf("decrypt webhook token: %w", err)
		}
		token := string(pt)
		sink.Token = &token
	}
	return sink, nil
}

func (r *WebhookSinkRepo) encryptToken(token *string) (*string, error) {
	if token == nil || *token == "" {
		return nil, nil
	}
	ct, err := r.Enc.Encrypt([]byte(*token))
	if err != nil {
		return nil, fmt.Errorf("encrypt webhook token: %w", err)
	}
	return &ct, nil
}

// Create inserts a new webhook sink.
func (r *WebhookSinkRepo) Create(ctx context.Context, req *model.CreateWebhookSinkRequest) (*model.WebhookSink, error) {
	if req == nil {
		return nil, errors.New("create webhook sink request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	okStatus := defaultWebhookOkStatus
	if req.OkStatus != nil {
		okStatus = *req.OkStatus
	}
	retry := defaultWebhookRetry
	if req.Retry != nil {
		retry = *req.Retry
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	token, err := r.encryptToken(req.Token)
	if err != nil {
		return nil, err
	}

	var row webhookSinkRow
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO webhook_sinks (
				id, name, uri, method, filter, token,
				ok_status, retry, enabled, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+webhookSinkColumns+`
		`, uuid.NewString(), req.Name, req.URI, req.Method, req.Filter, token,
			okStatus, retry, enabled, r.Time.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[webhookSinkRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create webhook sink: %w", err)
	}
	return r.toSink(row)
}

// GetByID fetches a webhook sink by ID.
func (r *WebhookSinkRepo) GetByID(ctx context.Context, id string) (*model.WebhookSink, error) {
	var row webhookSinkRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+webhookSinkColumns+` FROM webhook_sinks WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[webhookSinkRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWebhookSinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook sink: %w", err)
	}
	return r.toSink(row)
}

// List returns every webhook sink ordered by name.
func (r *WebhookSinkRepo) List(ctx context.Context) ([]*model.WebhookSink, error) {
	return r.list(ctx, `SELECT `+webhookSinkColumns+` FROM webhook_sinks ORDER BY name ASC`)
}

// ListEnabled returns the sinks eligible for delivery.
func (r *WebhookSinkRepo) ListEnabled(ctx context.Context) ([]*model.WebhookSink, error) {
	return r.list(ctx, `SELECT `+webhookSinkColumns+` FROM webhook_sinks WHERE enabled ORDER BY name ASC`)
}

func (r *WebhookSinkRepo) list(ctx context.Context, query string) ([]*model.WebhookSink, error) {
	var rowsOut []webhookSinkRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[webhookSinkRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list webhook sinks: %w", err)
	}

	sinks := make([]*model.WebhookSink, 0, len(rowsOut))
	for i := range rowsOut {
		sink, err := r.toSink(rowsOut[i])
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

// Update applies a partial update to a webhook sink. Nil fields are left
// unchanged.
func (r *WebhookSinkRepo) Update(ctx context.Context, id string, req *model.UpdateWebhookSinkRequest) (*model.WebhookSink, error) {
	if req == nil {
		return nil, errors.New("update webhook sink request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, err := r.encryptToken(req.Token)
	if err != nil {
		return nil, err
	}

	query, args := buildWebhookSinkUpdateSQL(id, req, token)

	var row webhookSinkRow
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[webhookSinkRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWebhookSinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update webhook sink: %w", err)
	}
	return r.toSink(row)
}

// Delete removes a webhook sink by ID.
func (r *WebhookSinkRepo) Delete(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM webhook_sinks WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete webhook sink: %w", err)
	}
	return affected > 0, nil
}

func buildWebhookSinkUpdateSQL(id string, req *model.UpdateWebhookSinkRequest, encryptedToken *string) (string, []any) {
	setClauses := []string{}
	args := []any{id}
	argPos := 2

	addClause := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if req.Name != nil {
		addClause("name", *req.Name)
	}
	if req.URI != nil {
		addClause("uri", *req.URI)
	}
	if req.Method != nil {
		addClause("method", *req.Method)
	}
	if req.Filter != nil {
		// An empty filter clears the expression.
		if strings.TrimSpace(*req.Filter) == "" {
			addClause("filter", nil)
		} else {
			addClause("filter", *req.Filter)
		}
	}
	if req.Token != nil {
		addClause("token", encryptedToken)
	}
	if req.OkStatus != nil {
		addClause("ok_status", *req.OkStatus)
	}
	if req.Retry != nil {
		addClause("retry", *req.Retry)
	}
	if req.Enabled != nil {
		addClause("enabled", *req.Enabled)
	}

	query := fmt.Sprintf(`
		UPDATE webhook_sinks SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setClauses, ", "), webhookSinkColumns)
	return query, args
}

var _ core.WebhookSinkRepository = (*WebhookSinkRepo)(nil)
