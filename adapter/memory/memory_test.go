package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/adapter/memory"
)

func seed(t *testing.T, store *memory.Adapter, emails ...string) {
	t.Helper()

	for _, email := range emails {
		_, err := store.Create(context.Background(), adapter.ModelUser, map[string]any{"email": email})
		require.NoError(t, err)
	}
}

func TestCreateAndFind(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ctx := context.Background()

	created, err := store.Create(ctx, adapter.ModelUser, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, created["id"], "id is generated when absent")
	assert.NotNil(t, created["createdAt"])

	found, err := store.FindOne(ctx, adapter.ModelUser, adapter.Where{adapter.Eq("email", "a@b.com")})
	require.NoError(t, err)
	assert.Equal(t, created["id"], found["id"])

	_, err = store.FindOne(ctx, adapter.ModelUser, adapter.Where{adapter.Eq("email", "missing@b.com")})
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestOperators(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store, "alice@a.com", "bob@b.com", "carol@a.com")
	ctx := context.Background()

	tests := []struct {
		name  string
		where adapter.Where
		want  int
	}{
		{"eq", adapter.Where{adapter.Eq("email", "bob@b.com")}, 1},
		{"ne", adapter.Where{adapter.Cond("email", adapter.OpNe, "bob@b.com")}, 2},
		{"in", adapter.Where{adapter.Cond("email", adapter.OpIn, []string{"alice@a.com", "bob@b.com"})}, 2},
		{"not_in", adapter.Where{adapter.Cond("email", adapter.OpNotIn, []string{"alice@a.com"})}, 2},
		{"contains", adapter.Where{adapter.Cond("email", adapter.OpContains, "@a.com")}, 2},
		{"starts_with", adapter.Where{adapter.Cond("email", adapter.OpStartsWith, "car")}, 1},
		{"ends_with", adapter.Where{adapter.Cond("email", adapter.OpEndsWith, "b.com")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recs, err := store.FindMany(ctx, adapter.ModelUser, tt.where, adapter.Query{})
			require.NoError(t, err)
			assert.Len(t, recs, tt.want)
		})
	}
}

func TestConnectorGrouping(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ctx := context.Background()

	for _, u := range []map[string]any{
		{"email": "a@x.com", "name": "a"},
		{"email": "b@x.com", "name": "b"},
		{"email": "c@y.com", "name": "c"},
	} {
		_, err := store.Create(ctx, adapter.ModelUser, u)
		require.NoError(t, err)
	}

	// (email ends_with x.com AND name = a) OR (name = c)
	recs, err := store.FindMany(ctx, adapter.ModelUser, adapter.Where{
		adapter.Cond("email", adapter.OpEndsWith, "x.com"),
		adapter.Eq("name", "a"),
		adapter.OrCond("name", adapter.OpEq, "c"),
	}, adapter.Query{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestUpdateAndDelete(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store, "a@b.com", "c@d.com")
	ctx := context.Background()

	updated, err := store.Update(ctx, adapter.ModelUser,
		adapter.Where{adapter.Eq("email", "a@b.com")},
		map[string]any{"name": "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated["name"])

	_, err = store.Update(ctx, adapter.ModelUser,
		adapter.Where{adapter.Eq("email", "missing")},
		map[string]any{"name": "x"})
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	n, err := store.UpdateMany(ctx, adapter.ModelUser, adapter.Where{}, map[string]any{"flag": true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, store.Delete(ctx, adapter.ModelUser, adapter.Where{adapter.Eq("email", "a@b.com")}))
	assert.ErrorIs(t,
		store.Delete(ctx, adapter.ModelUser, adapter.Where{adapter.Eq("email", "a@b.com")}),
		adapter.ErrNotFound)

	n, err = store.DeleteMany(ctx, adapter.ModelUser, adapter.Where{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSortLimitOffset(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store, "c@x.com", "a@x.com", "b@x.com")
	ctx := context.Background()

	recs, err := store.FindMany(ctx, adapter.ModelUser, adapter.Where{}, adapter.Query{
		Sort: &adapter.SortBy{Field: "email"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "a@x.com", recs[0]["email"])
	assert.Equal(t, "c@x.com", recs[2]["email"])

	recs, err = store.FindMany(ctx, adapter.ModelUser, adapter.Where{}, adapter.Query{
		Sort:   &adapter.SortBy{Field: "email", Desc: true},
		Limit:  1,
		Offset: 1,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b@x.com", recs[0]["email"])
}

func TestModelsAreIsolated(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ctx := context.Background()

	_, err := store.Create(ctx, adapter.ModelUser, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)

	recs, err := store.FindMany(ctx, adapter.ModelSession, adapter.Where{}, adapter.Query{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
