package main

import (
	"log"

	"github.com/match3rewards/payout-relay/internal/pkg/database"
	"github.com/match3rewards/payout-relay/internal/pkg/env"
)

// Runs the schema migration (GORM AutoMigrate) without starting the server.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()

	if database.GetDB() == nil {
		log.Fatal("migration failed: no database handle")
	}
	log.Print("migration complete")
}
