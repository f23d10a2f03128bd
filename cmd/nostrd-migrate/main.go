// Command nostrd-migrate is a standalone tool for operators who want
// explicit control over when a storage migration runs, rather than
// letting it happen implicitly the next time nostrd starts up.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/cuemby/nostrd/pkg/storage"
)

var (
	dataDir    = flag.String("data-dir", "/var/lib/nostrd", "nostrd data directory")
	dryRun     = flag.Bool("dry-run", false, "report the pending migration without applying it")
	backupPath = flag.String("backup", "", "path to back up nostrd.db to before migrating (default: <data-dir>/nostrd.db.backup)")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("nostrd storage migration tool")
	log.Println("==============================")

	dbPath := filepath.Join(*dataDir, "nostrd.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("database not found at %s", dbPath)
	}

	current, err := storage.PeekMigrationLevel(*dataDir)
	if err != nil {
		log.Fatalf("failed to read migration level: %v", err)
	}
	log.Printf("database: %s", dbPath)
	log.Printf("current migration_level: %d, target: %d", current, storage.CurrentMigrationLevel)

	if current == storage.CurrentMigrationLevel {
		log.Println("already at the current migration level, nothing to do")
		return
	}
	if current > storage.CurrentMigrationLevel {
		log.Fatalf("database migration_level %d exceeds what this binary understands (%d); upgrade nostrd-migrate first", current, storage.CurrentMigrationLevel)
	}

	if *dryRun {
		log.Printf("[dry run] would apply migration steps %d through %d", current+1, storage.CurrentMigrationLevel)
		log.Println("run without --dry-run to perform the migration")
		return
	}

	backupFile := *backupPath
	if backupFile == "" {
		backupFile = dbPath + ".backup"
	}
	log.Printf("creating backup: %s", backupFile)
	if err := copyFile(dbPath, backupFile); err != nil {
		log.Fatalf("failed to create backup: %v", err)
	}
	log.Println("backup created successfully")

	store, err := storage.Open(*dataDir)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	defer store.Close()

	final, err := store.MigrationLevel()
	if err != nil {
		log.Fatalf("failed to confirm migration level: %v", err)
	}
	log.Printf("migration completed successfully, migration_level now %d", final)
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0600)
}
