package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/angelmondragon/puntoventa-backend/internal/users"
	"github.com/angelmondragon/puntoventa-backend/pkg/config"
	"github.com/angelmondragon/puntoventa-backend/pkg/db"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/angelmondragon/puntoventa-backend/pkg/migrate"
)

// seedPasswordEnv keeps the bootstrap password out of shell history.
const seedPasswordEnv = "POS_SEED_MANAGER_PASSWORD"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|sync|seed-manager")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	username := flag.String("username", "admin", "manager username (for seed-manager)")
	email := flag.String("email", "", "manager email (for seed-manager)")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"dir":    *dir,
		"driver": cfg.DB.Driver,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	logg.Info(ctx, "migrate ready")

	if err := run(ctx, cfg, logg, dbClient, command{
		name:     *cmd,
		dir:      *dir,
		version:  *version,
		username: *username,
		email:    *email,
	}); err != nil {
		logg.Error(ctx, "migrate command failed", err)
		os.Exit(1)
	}
}

type command struct {
	name     string
	dir      string
	version  string
	username string
	email    string
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, c command) error {
	switch c.name {
	case "sync":
		// SQLite deployments have no SQL migrations; the schema comes from the models.
		return migrate.AutoMigrateModels(ctx, client.DB())
	case "seed-manager":
		return seedManager(ctx, cfg, logg, client, c.username, c.email)
	}

	if cfg.DB.IsSQLite() {
		return fmt.Errorf("goose migrations target postgres; use -cmd=sync for sqlite")
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	switch c.name {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, c.dir, c.name)
	case "version":
		if c.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, c.dir, c.version)
	default:
		return fmt.Errorf("unknown -cmd value: %s", c.name)
	}
}

// seedManager creates the first manager account so the user admin endpoints
// can be reached on a fresh install.
func seedManager(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, username, email string) error {
	password := os.Getenv(seedPasswordEnv)
	if password == "" {
		return fmt.Errorf("%s must be set", seedPasswordEnv)
	}
	if email == "" {
		return fmt.Errorf("missing -email for seed-manager")
	}

	svc, err := users.NewService(users.ServiceParams{
		Repo:           users.NewRepository(client.DB()),
		PasswordConfig: cfg.Password,
		Sessions:       noSessions{},
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	user, err := svc.Create(ctx, users.CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     enums.UserRoleManager,
		IsStaff:  true,
	})
	if err != nil {
		return err
	}
	fmt.Println("created manager:", user.Username, user.ID)
	return nil
}

// noSessions satisfies the users service; a fresh account has nothing to revoke.
type noSessions struct{}

func (noSessions) RevokeUser(context.Context, uuid.UUID) error { return nil }

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
