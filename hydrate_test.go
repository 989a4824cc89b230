package planpager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_KeyOf(t *testing.T) {
	assert.Equal(t, KeyOf(int64(7)), KeyOf(7))
	assert.Equal(t, KeyOf(int32(7)), KeyOf("7"))
	assert.Equal(t, KeyOf("7"), KeyOf([]byte("7")))
	assert.NotEqual(t, KeyOf(nil), KeyOf(""))
	assert.NotEqual(t, KeyOf(1, 23), KeyOf(12, 3))
	assert.Equal(t, KeyOf(uint(1), "x"), KeyOf(int64(1), []byte("x")))
}

func Test_RecordHydrator_Hydrate(t *testing.T) {
	t.Run("fetch joined collection", func(t *testing.T) {
		plan := usersWithGroupsPlan()
		q, err := NewCompiler(nil).Compile(plan)
		require.NoError(t, err)

		roots, err := RecordHydrator{}.Hydrate(&Result{Plan: plan, Columns: q.Columns, Rows: usersWithGroupsRows})
		require.NoError(t, err)
		require.Len(t, roots, 2)

		first := roots[0]
		assert.Equal(t, "u", first.Alias)
		assert.Same(t, testUsers, first.Entity)
		assert.Equal(t, KeyOf(1), first.Identity)
		assert.Equal(t, map[string]any{"id": int64(1), "name": "c"}, first.Fields)

		groups := first.ToMany["groups"]
		require.Len(t, groups, 2)
		assert.Equal(t, "g10", groups[0].Get("name"))
		assert.Equal(t, "g11", groups[1].Get("name"))
		assert.Same(t, groups[0], roots[1].ToMany["groups"][0])

		assert.Equal(t, KeyOf(1), RecordHydrator{}.Identity(first))
		assert.Nil(t, first.Get("missing"))
	})

	t.Run("left joined collection without matches", func(t *testing.T) {
		plan := usersWithGroupsPlan()
		plan.Joins[1].Kind = JoinLeft
		q, err := NewCompiler(nil).Compile(plan)
		require.NoError(t, err)

		roots, err := RecordHydrator{}.Hydrate(&Result{Plan: plan, Columns: q.Columns, Rows: []Row{
			{int64(5), "e", nil, nil},
		}})
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Empty(t, roots[0].ToMany["groups"])
	})

	t.Run("scalars and hidden columns", func(t *testing.T) {
		plan := usersPlan().Select(
			SelectEntity("u"),
			SelectScalar(maxVersionSubquery(), "max_version"),
			SelectHidden(Path("u.name"), "sort_name"),
		)
		q, err := NewCompiler(nil).Compile(plan)
		require.NoError(t, err)

		roots, err := RecordHydrator{}.Hydrate(&Result{Plan: plan, Columns: q.Columns, Rows: []Row{
			{int64(1), "a", int64(3), "a"},
			{int64(1), "a", int64(4), "a"},
			{int64(2), "b", nil, "b"},
		}})
		require.NoError(t, err)
		require.Len(t, roots, 2)
		assert.Equal(t, map[string]any{"max_version": int64(3)}, roots[0].Scalars)
		assert.Equal(t, map[string]any{"max_version": nil}, roots[1].Scalars)
	})

	t.Run("to-one association", func(t *testing.T) {
		plan := NewPlan(testArticles, "a").AddJoin(Join{
			Kind:        JoinInner,
			Parent:      "a",
			Association: "user",
			Alias:       "u",
			Entity:      testUsers,
			Cardinality: ToOne,
			Fetch:       true,
			On:          Eq(Path("u.id"), Path("a.user_id")),
		})
		q, err := NewCompiler(nil).Compile(plan)
		require.NoError(t, err)

		roots, err := RecordHydrator{}.Hydrate(&Result{Plan: plan, Columns: q.Columns, Rows: []Row{
			{int64(1), int64(9), 0, int64(9), "username8"},
			{int64(2), int64(9), 1, int64(9), "username8"},
		}})
		require.NoError(t, err)
		require.Len(t, roots, 2)
		assert.Equal(t, "username8", roots[0].ToOne["user"].Get("name"))
		assert.Same(t, roots[0].ToOne["user"], roots[1].ToOne["user"])
	})

	t.Run("root not projected", func(t *testing.T) {
		plan := usersPlan().Select(SelectScalar(Path("u.name"), "name"))
		q, err := NewCompiler(nil).Compile(plan)
		require.NoError(t, err)

		roots, err := RecordHydrator{}.Hydrate(&Result{Plan: plan, Columns: q.Columns, Rows: []Row{{"a"}, {"a"}}})
		require.NoError(t, err)
		require.Len(t, roots, 2)
		assert.Equal(t, map[string]any{"name": "a"}, roots[1].Scalars)
		assert.Nil(t, roots[1].Fields)
	})
}
