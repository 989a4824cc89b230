// Package cmsfixture provides a small CMS schema (users, groups, articles,
// companies) with entity metadata and seed data for end-to-end pagination
// runs.
package cmsfixture

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Alp4ka/planpager"
)

// Entity metadata.
var (
	Users = &planpager.Entity{
		Name:       "CmsUser",
		Table:      "cms_users",
		Identifier: []string{"id"},
		Fields: []planpager.Field{
			{Name: "id", Column: "id"},
			{Name: "status", Column: "status"},
			{Name: "username", Column: "username"},
			{Name: "name", Column: "name"},
			{Name: "email_id", Column: "email_id"},
		},
	}

	Emails = &planpager.Entity{
		Name:       "CmsEmail",
		Table:      "cms_emails",
		Identifier: []string{"id"},
		Fields: []planpager.Field{
			{Name: "id", Column: "id"},
			{Name: "email", Column: "email"},
		},
	}

	Groups = &planpager.Entity{
		Name:       "CmsGroup",
		Table:      "cms_groups",
		Identifier: []string{"id"},
		Fields: []planpager.Field{
			{Name: "id", Column: "id"},
			{Name: "name", Column: "name"},
		},
	}

	// UserGroups is the junction table of the users <-> groups association.
	UserGroups = &planpager.Entity{
		Name:       "CmsUserGroup",
		Table:      "cms_users_groups",
		Identifier: []string{"user_id", "group_id"},
		Fields: []planpager.Field{
			{Name: "user_id", Column: "user_id"},
			{Name: "group_id", Column: "group_id"},
		},
	}

	Articles = &planpager.Entity{
		Name:       "CmsArticle",
		Table:      "cms_articles",
		Identifier: []string{"id"},
		Fields: []planpager.Field{
			{Name: "id", Column: "id"},
			{Name: "user_id", Column: "user_id"},
			{Name: "topic", Column: "topic"},
			{Name: "text", Column: "text"},
			{Name: "version", Column: "version"},
		},
	}

	// Companies maps field "name" to column "company_name".
	Companies = &planpager.Entity{
		Name:       "Company",
		Table:      "companies",
		Identifier: []string{"id"},
		Fields: []planpager.Field{
			{Name: "id", Column: "id"},
			{Name: "name", Column: "company_name"},
			{Name: "logo_id", Column: "logo_id"},
		},
	}

	Logos = &planpager.Entity{
		Name:       "Logo",
		Table:      "logos",
		Identifier: []string{"id"},
		Fields: []planpager.Field{
			{Name: "id", Column: "id"},
			{Name: "image", Column: "image"},
			{Name: "image_width", Column: "image_width"},
			{Name: "image_height", Column: "image_height"},
		},
	}

	Departments = &planpager.Entity{
		Name:       "Department",
		Table:      "departments",
		Identifier: []string{"id"},
		Fields: []planpager.Field{
			{Name: "id", Column: "id"},
			{Name: "company_id", Column: "company_id"},
			{Name: "name", Column: "name"},
		},
	}
)

// JoinGroups joins the groups of user alias u as g through the junction
// alias ug.
func JoinGroups(plan *planpager.LogicalPlan, kind planpager.JoinKind, fetch bool) *planpager.LogicalPlan {
	return plan.
		AddJoin(planpager.Join{
			Kind:        kind,
			Parent:      "u",
			Alias:       "ug",
			Entity:      UserGroups,
			Cardinality: planpager.ToMany,
			On:          planpager.Eq(planpager.Path("ug.user_id"), planpager.Path("u.id")),
		}).
		AddJoin(planpager.Join{
			Kind:        kind,
			Parent:      "u",
			Association: "groups",
			Alias:       "g",
			Entity:      Groups,
			Cardinality: planpager.ToMany,
			Fetch:       fetch,
			On:          planpager.Eq(planpager.Path("g.id"), planpager.Path("ug.group_id")),
		})
}

// JoinUsers joins the users of group alias g as u through the junction
// alias ug.
func JoinUsers(plan *planpager.LogicalPlan, fetch bool) *planpager.LogicalPlan {
	return plan.
		AddJoin(planpager.Join{
			Kind:        planpager.JoinInner,
			Parent:      "g",
			Alias:       "ug",
			Entity:      UserGroups,
			Cardinality: planpager.ToMany,
			On:          planpager.Eq(planpager.Path("ug.group_id"), planpager.Path("g.id")),
		}).
		AddJoin(planpager.Join{
			Kind:        planpager.JoinInner,
			Parent:      "g",
			Association: "users",
			Alias:       "u",
			Entity:      Users,
			Cardinality: planpager.ToMany,
			Fetch:       fetch,
			On:          planpager.Eq(planpager.Path("u.id"), planpager.Path("ug.user_id")),
		})
}

// JoinArticles joins the articles of user alias u as a.
func JoinArticles(plan *planpager.LogicalPlan, fetch bool) *planpager.LogicalPlan {
	return plan.AddJoin(planpager.Join{
		Kind:        planpager.JoinLeft,
		Parent:      "u",
		Association: "articles",
		Alias:       "a",
		Entity:      Articles,
		Cardinality: planpager.ToMany,
		Fetch:       fetch,
		On:          planpager.Eq(planpager.Path("a.user_id"), planpager.Path("u.id")),
	})
}

// JoinEmail joins the email of user alias u as e.
func JoinEmail(plan *planpager.LogicalPlan, fetch bool) *planpager.LogicalPlan {
	return plan.AddJoin(planpager.Join{
		Kind:        planpager.JoinLeft,
		Parent:      "u",
		Association: "email",
		Alias:       "e",
		Entity:      Emails,
		Cardinality: planpager.ToOne,
		Fetch:       fetch,
		On:          planpager.Eq(planpager.Path("e.id"), planpager.Path("u.email_id")),
	})
}

// JoinDepartments joins the departments of company alias c as d.
func JoinDepartments(plan *planpager.LogicalPlan, fetch bool) *planpager.LogicalPlan {
	return plan.AddJoin(planpager.Join{
		Kind:        planpager.JoinInner,
		Parent:      "c",
		Association: "departments",
		Alias:       "d",
		Entity:      Departments,
		Cardinality: planpager.ToMany,
		Fetch:       fetch,
		On:          planpager.Eq(planpager.Path("d.company_id"), planpager.Path("c.id")),
	})
}

// JoinLogo joins the logo of company alias c as l.
func JoinLogo(plan *planpager.LogicalPlan, fetch bool) *planpager.LogicalPlan {
	return plan.AddJoin(planpager.Join{
		Kind:        planpager.JoinLeft,
		Parent:      "c",
		Association: "logo",
		Alias:       "l",
		Entity:      Logos,
		Cardinality: planpager.ToOne,
		Fetch:       fetch,
		On:          planpager.Eq(planpager.Path("l.id"), planpager.Path("c.logo_id")),
	})
}

// MaxArticleVersion is the correlated sub-select
// "(SELECT MAX(a.version) FROM CmsArticle a WHERE a.user_id = u.id)".
func MaxArticleVersion() planpager.Expr {
	sub := planpager.NewPlan(Articles, "a").
		Select(planpager.SelectScalar(planpager.Max(planpager.Path("a.version")), "")).
		AndWhere(planpager.Eq(planpager.Path("a.user_id"), planpager.Path("u.id")))

	return planpager.Subquery{Plan: sub}
}

// OpenMemory opens a private in-memory sqlite database with the schema
// migrated.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Every new connection would see its own empty database.
	sqlDB.SetMaxOpenConns(1)

	err = Migrate(db)
	if err != nil {
		return nil, err
	}

	return db, nil
}
