package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkravets/authgate/adapter"
)

// Adapter is a PostgreSQL implementation of adapter.Adapter backed by a
// pgx connection pool.
type Adapter struct {
	pool *pgxpool.Pool
}

// New creates an adapter on top of an existing pool. The pool's lifecycle
// belongs to the caller.
func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{pool: pool}
}

// Migrate creates the model tables if they do not exist.
func (a *Adapter) Migrate(ctx context.Context) error {
	for _, model := range []adapter.Model{
		adapter.ModelUser, adapter.ModelSession, adapter.ModelAccount, adapter.ModelVerification,
	} {
		stmt := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, data JSONB NOT NULL)`,
			tableName(model),
		)
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", model, err)
		}
	}
	return nil
}

func (a *Adapter) Create(ctx context.Context, model adapter.Model, data map[string]any) (map[string]any, error) {
	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.NewString()
		data = cloneWith(data, "id", id)
	}

	doc, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2)`, tableName(model))
	if _, err := a.pool.Exec(ctx, stmt, id, doc); err != nil {
		return nil, fmt.Errorf("create %s: %w", model, err)
	}

	return decode(doc)
}

func (a *Adapter) FindOne(ctx context.Context, model adapter.Model, where adapter.Where) (map[string]any, error) {
	clause, args, err := buildWhere(where)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(`SELECT data FROM %s %s LIMIT 1`, tableName(model), clause)

	var doc []byte
	if err := a.pool.QueryRow(ctx, stmt, args...).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, adapter.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", model, err)
	}

	return decode(doc)
}

func (a *Adapter) FindMany(ctx context.Context, model adapter.Model, where adapter.Where, q adapter.Query) ([]map[string]any, error) {
	clause, args, err := buildWhere(where)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT data FROM %s %s`, tableName(model), clause)
	if q.Sort != nil {
		dir := "ASC"
		if q.Sort.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY data->>'%s' %s`, sanitizeField(q.Sort.Field), dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, ` LIMIT %d`, q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, ` OFFSET %d`, q.Offset)
	}

	rows, err := a.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find many %s: %w", model, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		rec, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *Adapter) Update(ctx context.Context, model adapter.Model, where adapter.Where, data map[string]any) (map[string]any, error) {
	clause, args, err := buildWhere(where)
	if err != nil {
		return nil, err
	}

	patch, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	args = append(args, patch)

	stmt := fmt.Sprintf(
		`UPDATE %[1]s SET data = data || $%[2]d
		 WHERE id = (SELECT id FROM %[1]s %[3]s LIMIT 1)
		 RETURNING data`,
		tableName(model), len(args), clause,
	)

	var doc []byte
	if err := a.pool.QueryRow(ctx, stmt, args...).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, adapter.ErrNotFound
		}
		return nil, fmt.Errorf("update %s: %w", model, err)
	}

	return decode(doc)
}

func (a *Adapter) UpdateMany(ctx context.Context, model adapter.Model, where adapter.Where, data map[string]any) (int64, error) {
	clause, args, err := buildWhere(where)
	if err != nil {
		return 0, err
	}

	patch, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	args = append(args, patch)

	stmt := fmt.Sprintf(`UPDATE %s SET data = data || $%d %s`, tableName(model), len(args), clause)
	tag, err := a.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("update many %s: %w", model, err)
	}
	return tag.RowsAffected(), nil
}

func (a *Adapter) Delete(ctx context.Context, model adapter.Model, where adapter.Where) error {
	clause, args, err := buildWhere(where)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		`DELETE FROM %[1]s WHERE id = (SELECT id FROM %[1]s %[2]s LIMIT 1)`,
		tableName(model), clause,
	)
	tag, err := a.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", model, err)
	}
	if tag.RowsAffected() == 0 {
		return adapter.ErrNotFound
	}
	return nil
}

func (a *Adapter) DeleteMany(ctx context.Context, model adapter.Model, where adapter.Where) (int64, error) {
	clause, args, err := buildWhere(where)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf(`DELETE FROM %s %s`, tableName(model), clause)
	tag, err := a.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete many %s: %w", model, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired reaps expired session and verification rows. Meant to be
// called periodically by the host application.
func (a *Adapter) DeleteExpired(ctx context.Context) error {
	for _, model := range []adapter.Model{adapter.ModelSession, adapter.ModelVerification} {
		stmt := fmt.Sprintf(
			`DELETE FROM %s WHERE (data->>'expiresAt')::timestamptz < now()`,
			tableName(model),
		)
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reap %s: %w", model, err)
		}
	}
	return nil
}

func cloneWith(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

func tableName(model adapter.Model) string {
	return "authgate_" + string(model)
}

// buildWhere translates a Where clause into SQL over the JSONB document.
// Field names are restricted to identifier characters; values always bind
// as parameters.
func buildWhere(where adapter.Where) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	var b strings.Builder
	var args []any
	b.WriteString("WHERE ")

	for i, cond := range where {
		if i > 0 {
			if cond.Connector == adapter.Or {
				b.WriteString(" OR ")
			} else {
				b.WriteString(" AND ")
			}
		}

		field := sanitizeField(cond.Field)
		accessor := fmt.Sprintf("data->>'%s'", field)
		if field == "id" {
			accessor = "id"
		}

		switch cond.Op {
		case adapter.OpEq, "":
			args = append(args, bindValue(cond.Value))
			fmt.Fprintf(&b, "%s = $%d", accessor, len(args))
		case adapter.OpNe:
			args = append(args, bindValue(cond.Value))
			fmt.Fprintf(&b, "%s <> $%d", accessor, len(args))
		case adapter.OpIn, adapter.OpNotIn:
			op := "= ANY"
			if cond.Op == adapter.OpNotIn {
				op = "<> ALL"
			}
			args = append(args, bindSlice(cond.Value))
			fmt.Fprintf(&b, "%s %s($%d)", accessor, op, len(args))
		case adapter.OpContains:
			args = append(args, "%"+escapeLike(cond.Value)+"%")
			fmt.Fprintf(&b, "%s LIKE $%d", accessor, len(args))
		case adapter.OpStartsWith:
			args = append(args, escapeLike(cond.Value)+"%")
			fmt.Fprintf(&b, "%s LIKE $%d", accessor, len(args))
		case adapter.OpEndsWith:
			args = append(args, "%"+escapeLike(cond.Value))
			fmt.Fprintf(&b, "%s LIKE $%d", accessor, len(args))
		default:
			return "", nil, fmt.Errorf("%w: operator %q", adapter.ErrInvalidWhere, cond.Op)
		}
	}

	return b.String(), args, nil
}

func sanitizeField(field string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return -1
		}
	}, field)
}

// bindValue normalizes values for comparison against JSONB text fields.
func bindValue(v any) any {
	switch t := v.(type) {
	case string, nil:
		return t
	default:
		data, _ := json.Marshal(t)
		return strings.Trim(string(data), `"`)
	}
}

func bindSlice(v any) []string {
	var out []string
	switch s := v.(type) {
	case []string:
		out = s
	case []any:
		for _, item := range s {
			out = append(out, fmt.Sprintf("%v", bindValue(item)))
		}
	default:
		out = []string{fmt.Sprintf("%v", bindValue(v))}
	}
	return out
}

func escapeLike(v any) string {
	s := fmt.Sprintf("%v", bindValue(v))
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

func decode(doc []byte) (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
