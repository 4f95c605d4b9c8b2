package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/db"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	"github.com/angelmondragon/tombamento-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|to|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for -cmd=create)")
	target := flag.String("version", "", "target version YYYYMMDDHHMMSS (for -cmd=to)")
	flag.Parse()

	// create and validate only touch the filesystem.
	switch *cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(*dir, *name)
		exitOn(err, "create migration")
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn(migrate.ValidateDir(*dir), "validate migrations")
		fmt.Println("migration validation passed")
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(context.Background(), logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(context.Background(), logg, "sql database", err)

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"cmd":     *cmd,
		"dir":     *dir,
		"dialect": dbClient.Dialect(),
	})
	logg.Info(ctx, "migrate ready")

	var lines []string
	if *cmd == "to" {
		lines, err = migrate.MigrateToVersion(ctx, sqlDB, dbClient.Dialect(), *dir, *target)
	} else {
		lines, err = migrate.Run(ctx, sqlDB, dbClient.Dialect(), *dir, *cmd)
	}
	exitOn(err, "goose "+*cmd)
	for _, line := range lines {
		fmt.Println(line)
	}
}

func exitOn(err error, action string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", action, err)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
