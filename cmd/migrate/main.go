package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"

	"whatsapp-booking-bot/cmd/bootstrap"
	"whatsapp-booking-bot/config"
	"whatsapp-booking-bot/internal/infrastructure/database"
	appmigrations "whatsapp-booking-bot/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Usage: migrate [up|down|force <version>]
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootstrap.NewLogger("info").Fatalf("Failed to load config: %v", err)
	}
	log := bootstrap.NewLogger(cfg.App.LogLevel)

	db, err := sql.Open("pgx", database.URL(cfg.DB))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create database driver: %v", err)
	}

	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		log.Fatalf("Failed to create source driver: %v", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	defer m.Close()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "force":
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate force <version>")
		}
		version, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			log.Fatalf("Invalid version: %v", convErr)
		}
		err = m.Force(version)
	default:
		log.Fatalf("Unknown command %q", command)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration %s failed: %v", command, err)
	}

	version, dirty, _ := m.Version()
	log.WithField("version", version).WithField("dirty", dirty).Infof("Migration %s complete", command)
}
