package planpager

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Quoted identifier and placeholder patterns valid for both MySQL and
// Postgres.
const (
	rq = "[`\"]"
	rp = `(?:\$\d+|\?)`
)

// sqlPattern turns an SQL template into an anchored regexp matching it under
// MySQL and Postgres: backticks stand for either identifier quote and every
// "?" for either placeholder style.
func sqlPattern(template string) string {
	p := regexp.QuoteMeta(template)
	p = strings.ReplaceAll(p, "`", rq)
	p = strings.ReplaceAll(p, `\?`, rp)

	return "^" + p + "$"
}

var (
	testUsers = &Entity{
		Name:       "User",
		Table:      "users",
		Identifier: []string{"id"},
		Fields:     []Field{{Name: "id", Column: "id"}, {Name: "name", Column: "name"}},
	}

	testGroups = &Entity{
		Name:       "Group",
		Table:      "cms_groups",
		Identifier: []string{"id"},
		Fields:     []Field{{Name: "id", Column: "id"}, {Name: "name", Column: "name"}},
	}

	testUserGroups = &Entity{
		Name:       "UserGroup",
		Table:      "users_groups",
		Identifier: []string{"user_id", "group_id"},
		Fields:     []Field{{Name: "user_id", Column: "user_id"}, {Name: "group_id", Column: "group_id"}},
	}

	testArticles = &Entity{
		Name:       "Article",
		Table:      "articles",
		Identifier: []string{"id"},
		Fields: []Field{
			{Name: "id", Column: "id"},
			{Name: "user_id", Column: "user_id"},
			{Name: "version", Column: "version"},
		},
	}
)

// usersPlan returns "SELECT u FROM User u".
func usersPlan() *LogicalPlan {
	return NewPlan(testUsers, "u")
}

// usersWithGroupsPlan returns "SELECT u, g FROM User u JOIN u.groups g".
func usersWithGroupsPlan() *LogicalPlan {
	return usersPlan().
		AddJoin(Join{
			Kind:        JoinInner,
			Parent:      "u",
			Alias:       "ug",
			Entity:      testUserGroups,
			Cardinality: ToMany,
			On:          Eq(Path("ug.user_id"), Path("u.id")),
		}).
		AddJoin(Join{
			Kind:        JoinInner,
			Parent:      "u",
			Association: "groups",
			Alias:       "g",
			Entity:      testGroups,
			Cardinality: ToMany,
			Fetch:       true,
			On:          Eq(Path("g.id"), Path("ug.group_id")),
		})
}

const usersWithGroupsSQL = "SELECT u.id AS u_id, u.name AS u_name, g.id AS g_id, g.name AS g_name " +
	"FROM users u INNER JOIN users_groups ug ON ug.user_id = u.id INNER JOIN cms_groups g ON g.id = ug.group_id"

// maxVersionSubquery returns "(SELECT MAX(a.version) FROM Article a WHERE a.user_id = u.id)".
func maxVersionSubquery() Subquery {
	return Subquery{Plan: NewPlan(testArticles, "a").
		Select(SelectScalar(Max(Path("a.version")), "")).
		AndWhere(Eq(Path("a.user_id"), Path("u.id")))}
}

// fakeExecutor compiles with identity quoting and answers queries from a
// queue, recording every statement.
type fakeExecutor struct {
	compiler *Compiler
	results  [][]Row
	queries  []string
	args     [][]any
}

func newFakeExecutor(results ...[]Row) *fakeExecutor {
	return &fakeExecutor{compiler: NewCompiler(nil), results: results}
}

func (f *fakeExecutor) Compile(plan *LogicalPlan) (*PhysicalQuery, error) {
	return f.compiler.Compile(plan)
}

func (f *fakeExecutor) Query(_ context.Context, q *PhysicalQuery) ([]Row, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)

	if len(f.results) == 0 {
		return nil, fmt.Errorf("unexpected query %s", sql)
	}
	ret := f.results[0]
	f.results = f.results[1:]

	return ret, nil
}

func newGORMMySQLMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "mysql", db.Debug(), mock, nil
}

func newGORMPostgresMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "postgres", db.Debug(), mock, nil
}
