package main

import (
	"log"
	"os"

	"voicetask/internal/model"
	"voicetask/pkg/database"

	"github.com/joho/godotenv"
)

// Creates the Postgres schema for STORE_DRIVER=postgres. The server also
// auto-migrates on start; this exists for deploys where the app role has
// no DDL rights.
func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect and AutoMigrate
	log.Println("Step 1: Running AutoMigrate...")
	db, err := database.NewGormDBFromDSN(dsn, true, &model.KVEntry{})
	if err != nil {
		log.Fatal("Error: Failed to migrate database:", err)
	}

	// 3. Post-Migration: trigger keeping updated_at honest for manual edits
	log.Println("Step 2: Creating Functions and Triggers...")

	postMigrationSQL := []string{
		`CREATE OR REPLACE FUNCTION set_current_timestamp_updated_at() RETURNS trigger LANGUAGE plpgsql AS $$
		DECLARE _new_value TIMESTAMP WITH TIME ZONE;
		BEGIN
		  _new_value := now();
		  IF NEW.updated_at IS DISTINCT FROM _new_value THEN NEW.updated_at = _new_value; END IF;
		  RETURN NEW;
		END; $$;`,
		`DROP TRIGGER IF EXISTS set_kv_entries_updated_at ON kv_entries;`,
		`CREATE TRIGGER set_kv_entries_updated_at BEFORE UPDATE ON kv_entries
		 FOR EACH ROW EXECUTE FUNCTION set_current_timestamp_updated_at();`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Post-migration SQL failed: %v", err)
		}
	}

	log.Println("Migration completed")
}
