package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"deposit-collector/pkg/config"
)

func main() {
	var command string
	var version int
	var source string
	flag.StringVar(&command, "cmd", "up", "Command to run: up, down, force, version")
	flag.IntVar(&version, "v", -1, "Version for force command")
	flag.StringVar(&source, "source", "file://migrations", "Migration source URL")
	flag.Parse()

	config.Init()

	m, err := migrate.New(source, config.Global.DB.MigrateURL())
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migration up done")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migration down done")
	case "force":
		if version == -1 {
			log.Fatal("Version (-v) is required for force command")
		}
		if err := m.Force(version); err != nil {
			log.Fatalf("Migration force failed: %v", err)
		}
		log.Printf("Migration forced to version %d", version)
	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("Migration version failed: %v", err)
		}
		log.Printf("Migration version %d (dirty=%t)", v, dirty)
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
