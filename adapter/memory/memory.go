package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/authgate/adapter"
)

// Adapter is an in-memory implementation of adapter.Adapter.
type Adapter struct {
	mu      sync.RWMutex
	records map[adapter.Model][]map[string]any
}

// New creates an empty in-memory adapter.
func New() *Adapter {
	return &Adapter{
		records: make(map[adapter.Model][]map[string]any),
	}
}

func (a *Adapter) Create(ctx context.Context, model adapter.Model, data map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := maps.Clone(data)
	if _, ok := rec["id"]; !ok {
		rec["id"] = uuid.NewString()
	}
	if _, ok := rec["createdAt"]; !ok {
		rec["createdAt"] = time.Now()
	}

	a.mu.Lock()
	a.records[model] = append(a.records[model], rec)
	a.mu.Unlock()

	return maps.Clone(rec), nil
}

func (a *Adapter) FindOne(ctx context.Context, model adapter.Model, where adapter.Where) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, rec := range a.records[model] {
		if matches(rec, where) {
			return maps.Clone(rec), nil
		}
	}
	return nil, adapter.ErrNotFound
}

func (a *Adapter) FindMany(ctx context.Context, model adapter.Model, where adapter.Where, q adapter.Query) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	var out []map[string]any
	for _, rec := range a.records[model] {
		if matches(rec, where) {
			out = append(out, maps.Clone(rec))
		}
	}
	a.mu.RUnlock()

	if q.Sort != nil {
		field, desc := q.Sort.Field, q.Sort.Desc
		sort.SliceStable(out, func(i, j int) bool {
			less := compare(out[i][field], out[j][field]) < 0
			if desc {
				return !less
			}
			return less
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}

	return out, nil
}

func (a *Adapter) Update(ctx context.Context, model adapter.Model, where adapter.Where, data map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, rec := range a.records[model] {
		if matches(rec, where) {
			maps.Copy(rec, data)
			return maps.Clone(rec), nil
		}
	}
	return nil, adapter.ErrNotFound
}

func (a *Adapter) UpdateMany(ctx context.Context, model adapter.Model, where adapter.Where, data map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var n int64
	for _, rec := range a.records[model] {
		if matches(rec, where) {
			maps.Copy(rec, data)
			n++
		}
	}
	return n, nil
}

func (a *Adapter) Delete(ctx context.Context, model adapter.Model, where adapter.Where) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	recs := a.records[model]
	for i, rec := range recs {
		if matches(rec, where) {
			a.records[model] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return adapter.ErrNotFound
}

func (a *Adapter) DeleteMany(ctx context.Context, model adapter.Model, where adapter.Where) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var kept []map[string]any
	var n int64
	for _, rec := range a.records[model] {
		if matches(rec, where) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	a.records[model] = kept
	return n, nil
}

// matches evaluates a Where clause against a record. Conditions joined
// with OR form disjunction groups the way SQL would: a AND b OR c AND d
// is (a AND b) OR (c AND d).
func matches(rec map[string]any, where adapter.Where) bool {
	if len(where) == 0 {
		return true
	}

	group := true
	for i, cond := range where {
		if i > 0 && cond.Connector == adapter.Or {
			if group {
				return true
			}
			group = true
		}
		if !evalCondition(rec, cond) {
			group = false
		}
	}
	return group
}

func evalCondition(rec map[string]any, cond adapter.Condition) bool {
	val, ok := rec[cond.Field]
	switch cond.Op {
	case adapter.OpEq, "":
		return ok && compare(val, cond.Value) == 0
	case adapter.OpNe:
		return !ok || compare(val, cond.Value) != 0
	case adapter.OpIn:
		for _, item := range toSlice(cond.Value) {
			if ok && compare(val, item) == 0 {
				return true
			}
		}
		return false
	case adapter.OpNotIn:
		for _, item := range toSlice(cond.Value) {
			if ok && compare(val, item) == 0 {
				return false
			}
		}
		return true
	case adapter.OpContains:
		return ok && strings.Contains(asString(val), asString(cond.Value))
	case adapter.OpStartsWith:
		return ok && strings.HasPrefix(asString(val), asString(cond.Value))
	case adapter.OpEndsWith:
		return ok && strings.HasSuffix(asString(val), asString(cond.Value))
	default:
		return false
	}
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out
	default:
		return []any{v}
	}
}

func compare(a, b any) int {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Compare(bt)
	}
	return strings.Compare(asString(a), asString(b))
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var _ adapter.Adapter = (*Adapter)(nil)
