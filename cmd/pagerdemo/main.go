// Command pagerdemo pages CMS users together with their fetch joined groups
// and prints one page.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Alp4ka/planpager"
	"github.com/Alp4ka/planpager/internal/cmsfixture"
)

func main() {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := cfg.Level()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err = run(ctx, cfg, log); err != nil {
		log.Error("pagerdemo failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, log *slog.Logger) error {
	db, err := open(cfg)
	if err != nil {
		return err
	}

	if cfg.Seed {
		if err = cmsfixture.Migrate(db); err != nil {
			return err
		}
		if err = cmsfixture.Seed(db); err != nil {
			return fmt.Errorf("cannot seed: %w", err)
		}
	}

	strategy, err := cfg.Strategy()
	if err != nil {
		return err
	}

	// SELECT u, g FROM CmsUser u JOIN u.groups g ORDER BY u.username
	plan := cmsfixture.JoinGroups(planpager.NewPlan(cmsfixture.Users, "u"), planpager.JoinInner, true)

	orderBy := planpager.Asc(planpager.Path("u.username"))
	if cfg.Desc {
		orderBy = planpager.Desc(planpager.Path("u.username"))
	}

	pager, err := planpager.RawCursorPager{Limit: cfg.Limit, StartToken: cfg.Token}.DecodePseudo(orderBy)
	if err != nil {
		return err
	}
	if cfg.Token == "" {
		pager = pager.WithCursor(planpager.NewPseudoCursor(cfg.Offset))
	}

	paginator := planpager.NewPaginator(plan, planpager.NewGORMExecutor(db), planpager.RecordHydrator{}).
		WithStrategy(strategy).
		WithLogger(log)

	page, err := planpager.FetchPage(ctx, pager, paginator, planpager.NextPagePseudoCursor[*planpager.Record])
	if err != nil {
		return err
	}

	fmt.Printf("total: %d, limit: %d\n", page.Total, page.AppliedLimit)
	for _, user := range page.Items {
		groups := make([]string, 0, len(user.ToMany["groups"]))
		for _, g := range user.ToMany["groups"] {
			groups = append(groups, fmt.Sprint(g.Get("name")))
		}
		fmt.Printf("%v\t%v\t[%s]\n", user.Get("id"), user.Get("username"), strings.Join(groups, ", "))
	}
	if !page.NextPageToken.IsEmpty() {
		fmt.Printf("next: --token %s\n", page.NextPageToken)
	}

	return nil
}

func open(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("cannot open %s database: %w", cfg.Dialect, err)
	}

	if cfg.Dialect == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}
