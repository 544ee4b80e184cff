package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/store/postgres"
)

// Schema migration runner. The migration SQL is embedded in the postgres
// package, so this binary works from any directory.
//
//	migrate [up|down|status] [connection-string]
//
// The connection string falls back to CHRONICLE_DATABASE_URL.
func main() {
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	dsn := os.Getenv("CHRONICLE_DATABASE_URL")
	if len(os.Args) > 2 {
		dsn = os.Args[2]
	}
	if dsn == "" {
		log.Fatal("set CHRONICLE_DATABASE_URL or pass a connection string")
	}

	switch command {
	case "up":
		if err := postgres.Migrate(ctx, dsn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migration successful.")
	case "down":
		if err := postgres.Rollback(ctx, dsn); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		fmt.Println("Rolled back one migration.")
	case "status":
		version, err := postgres.MigrationVersion(ctx, dsn)
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		fmt.Printf("Schema version: %d\n", version)
	default:
		log.Fatalf("unknown command %q (want up, down or status)", command)
	}
}
