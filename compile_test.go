package planpager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Compiler_Compile(t *testing.T) {
	tests := []struct {
		name     string
		plan     func() *LogicalPlan
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "entity projection",
			plan:    usersPlan,
			wantSQL: "SELECT u.id AS u_id, u.name AS u_name FROM users u",
		},
		{
			name:    "fetch join",
			plan:    usersWithGroupsPlan,
			wantSQL: usersWithGroupsSQL,
		},
		{
			name: "where, order, limit and offset",
			plan: func() *LogicalPlan {
				return usersPlan().
					AndWhere(Gt(Path("u.id"), P("id"))).
					SetParameter(Named("id"), 3).
					AddOrderBy(Desc(Path("u.name")), Asc(Path("u.id"))).
					SetMaxResults(5).
					SetFirstResult(10)
			},
			wantSQL:  "SELECT u.id AS u_id, u.name AS u_name FROM users u WHERE u.id > ? ORDER BY u.name DESC, u.id ASC LIMIT 5 OFFSET 10",
			wantArgs: []any{3},
		},
		{
			name: "offset without limit",
			plan: func() *LogicalPlan {
				return usersPlan().SetFirstResult(4)
			},
			wantSQL: "SELECT u.id AS u_id, u.name AS u_name FROM users u LIMIT 9223372036854775807 OFFSET 4",
		},
		{
			name: "nested boolean operands are parenthesized",
			plan: func() *LogicalPlan {
				return usersPlan().
					AndWhere(Or(Lt(Path("u.id"), P("id")), Eq(Lit(1), Lit(1)))).
					AndWhere(IsNull{Expr: Path("u.name"), Negated: true}).
					SetParameter(Named("id"), 7)
			},
			wantSQL:  "SELECT u.id AS u_id, u.name AS u_name FROM users u WHERE (u.id < ? OR ? = ?) AND u.name IS NOT NULL",
			wantArgs: []any{7, 1, 1},
		},
		{
			name: "hidden case projection referenced by order",
			plan: func() *LogicalPlan {
				vip := Case{
					Whens: []When{{Cond: Lt(Path("u.id"), P("vipMaxId")), Then: Lit(1)}},
					Else:  Lit(0),
				}
				return usersPlan().
					Select(SelectEntity("u"), SelectHidden(vip, "promoted_first")).
					AddOrderBy(Desc(Ref{Name: "promoted_first"}), Asc(Path("u.id"))).
					SetParameter(Named("vipMaxId"), 5)
			},
			wantSQL: "SELECT u.id AS u_id, u.name AS u_name, CASE WHEN u.id < ? THEN ? ELSE ? END AS promoted_first " +
				"FROM users u ORDER BY promoted_first DESC, u.id ASC",
			wantArgs: []any{5, 1, 0},
		},
		{
			name: "correlated sub-select",
			plan: func() *LogicalPlan {
				return usersPlan().
					Select(SelectEntity("u"), SelectHidden(maxVersionSubquery(), "max_version")).
					AddOrderBy(Desc(Ref{Name: "max_version"}))
			},
			wantSQL: "SELECT u.id AS u_id, u.name AS u_name, " +
				"(SELECT MAX(a.version) AS sclr_0 FROM articles a WHERE a.user_id = u.id) AS max_version " +
				"FROM users u ORDER BY max_version DESC",
		},
		{
			name: "group by entity and having",
			plan: func() *LogicalPlan {
				plan := NewPlan(testGroups, "g").
					AddJoin(Join{
						Kind:        JoinInner,
						Parent:      "g",
						Alias:       "ug",
						Entity:      testUserGroups,
						Cardinality: ToMany,
						On:          Eq(Path("ug.group_id"), Path("g.id")),
					})
				plan.Projections = append(plan.Projections, SelectScalar(Count(Path("ug.user_id")), "user_count"))
				plan.GroupBy = []Expr{EntityRef{Alias: "g"}}
				plan.Having = Gt(Count(Path("ug.user_id")), Lit(0))
				return plan
			},
			wantSQL: "SELECT g.id AS g_id, g.name AS g_name, COUNT(ug.user_id) AS user_count " +
				"FROM cms_groups g INNER JOIN users_groups ug ON ug.group_id = g.id " +
				"GROUP BY g.id, g.name HAVING COUNT(ug.user_id) > ?",
			wantArgs: []any{0},
		},
		{
			name: "in lists",
			plan: func() *LogicalPlan {
				return usersPlan().
					AndWhere(InList{Expr: Path("u.id"), List: []Expr{Lit(1), Lit(2)}}).
					AndWhere(InList{Expr: Path("u.name")}).
					AndWhere(InList{Expr: Path("u.name"), Negated: true})
			},
			wantSQL:  "SELECT u.id AS u_id, u.name AS u_name FROM users u WHERE (u.id IN (?, ?) AND 1 = 0) AND 1 = 1",
			wantArgs: []any{1, 2},
		},
		{
			name: "scalar aliases",
			plan: func() *LogicalPlan {
				return usersPlan().Select(
					SelectScalar(Func{Name: "COUNT"}, ""),
					SelectScalar(CountDistinct(EntityRef{Alias: "u"}), "n"),
					SelectScalar(Not{Expr: Eq(Path("u.name"), Lit(nil))}, "n"),
				)
			},
			wantSQL: "SELECT COUNT(*) AS sclr_0, COUNT(DISTINCT u.id) AS n, NOT (u.name = NULL) AS n_1 FROM users u",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewCompiler(nil).Compile(tt.plan())
			require.NoError(t, err)

			sql, args, err := q.ToSQL()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func Test_Compiler_Compile_Columns(t *testing.T) {
	plan := usersWithGroupsPlan().
		Select(SelectEntity("u"), SelectScalar(Path("g.name"), "group_name"), SelectHidden(Path("g.id"), "gid"))

	q, err := NewCompiler(nil).Compile(plan)
	require.NoError(t, err)

	require.Equal(t, []ResultColumn{
		{Name: "u_id", Alias: "u", Field: "id"},
		{Name: "u_name", Alias: "u", Field: "name"},
		{Name: "group_name"},
		{Name: "gid", Hidden: true},
	}, q.Columns)

	c, ok := q.fieldColumn("u", "name")
	require.True(t, ok)
	require.Equal(t, "u_name", c.Name)

	_, ok = q.namedColumn("missing")
	require.False(t, ok)
}

func Test_Compiler_Compile_Errors(t *testing.T) {
	tests := []struct {
		name      string
		plan      func() *LogicalPlan
		wantErrIs error
	}{
		{
			name: "bound parameter is not referenced",
			plan: func() *LogicalPlan {
				return usersPlan().SetParameter(Named("id"), 1)
			},
			wantErrIs: ErrParameterMismatch,
		},
		{
			name: "referenced parameter is not bound",
			plan: func() *LogicalPlan {
				return usersPlan().AndWhere(Eq(Path("u.id"), PAt(1)))
			},
			wantErrIs: ErrParameterMismatch,
		},
		{
			name: "unknown alias",
			plan: func() *LogicalPlan {
				return usersPlan().AndWhere(Eq(Path("x.id"), Lit(1)))
			},
		},
		{
			name: "unknown field",
			plan: func() *LogicalPlan {
				return usersPlan().AndWhere(Eq(Path("u.email"), Lit(1)))
			},
		},
		{
			name: "unknown result alias",
			plan: func() *LogicalPlan {
				return usersPlan().AddOrderBy(Asc(Ref{Name: "nope"}))
			},
		},
		{
			name: "group by with bound values",
			plan: func() *LogicalPlan {
				plan := usersPlan()
				plan.GroupBy = []Expr{Mul(Path("u.id"), Lit(2))}
				return plan
			},
		},
		{
			name: "composite entity compared as a whole",
			plan: func() *LogicalPlan {
				return NewPlan(testUserGroups, "ug").AndWhere(Eq(EntityRef{Alias: "ug"}, Lit(1)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompiler(nil).Compile(tt.plan())
			require.Error(t, err)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
			}
		})
	}
}

func Test_Compiler_Compile_DoesNotModifyPlan(t *testing.T) {
	plan := usersPlan().AndWhere(Eq(Path("u.id"), P("id"))).SetParameter(Named("id"), 1)
	before := plan.Clone()

	q, err := NewCompiler(nil).Compile(plan)
	require.NoError(t, err)

	q.Params[Named("id")] = 2
	require.Equal(t, before, plan)
}
