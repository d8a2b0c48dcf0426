package db

import (
	"bufio"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand executes one action of the migrate subcommand. The
// daemon migrates on startup; this path is for operators working on a
// stopped database, so it opens without touching the schema.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) == 0 {
		PrintMigrateHelp()
		os.Exit(1)
	}
	action, rest := args[0], args[1:]

	if action == "help" {
		PrintMigrateHelp()
		return
	}

	migrations, err := getMigrationsFS()
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", dbPath, err)
	}
	defer database.Close()

	switch action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			log.Fatalf("Migrate up failed: %v", err)
		}
		log.Println("✓ Schema is up to date")

	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			log.Fatalf("Migrate down failed: %v", err)
		}
		log.Println("✓ Rolled back one migration")

	case "status":
		printMigrateStatus(database, migrations)
		return

	case "version":
		n := versionArg(action, rest)
		if err := database.MigrateTo(migrations, uint(n)); err != nil {
			log.Fatalf("Migrate to version %d failed: %v", n, err)
		}
		log.Printf("✓ Now at version %d", n)

	case "force":
		n := versionArg(action, rest)
		if !confirmForce(n) {
			log.Println("Aborted")
			return
		}
		if err := database.MigrateForce(migrations, int(n)); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
		log.Printf("✓ Version marker forced to %d", n)

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}

	version, dirty, _ := database.MigrateVersion(migrations)
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

// versionArg parses the numeric argument of the version/force actions.
func versionArg(action string, args []string) uint64 {
	if len(args) == 0 {
		log.Fatalf("Usage: questrig migrate %s <version_number>", action)
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		log.Fatalf("Invalid version number %q", args[0])
	}
	return n
}

func printMigrateStatus(database *DB, migrations fs.FS) {
	version, dirty, err := database.MigrateVersion(migrations)
	if err != nil {
		log.Fatalf("Failed to read migration status: %v", err)
	}

	fmt.Printf("Schema version: %d\n", version)
	fmt.Printf("Dirty: %v\n", dirty)
	if dirty {
		fmt.Println("\n⚠️  A migration stopped partway. Inspect the database, repair it,")
		fmt.Println("then run: questrig migrate force <version>")
	}
}

// confirmForce asks the operator before rewriting the version marker.
func confirmForce(version uint64) bool {
	fmt.Printf("⚠️  Forcing the version marker to %d without running migrations.\n", version)
	fmt.Println("Only do this to recover from a dirty state.")
	fmt.Print("Type yes to continue: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return scanner.Text() == "yes"
}

// PrintMigrateHelp prints usage for the migrate subcommand
func PrintMigrateHelp() {
	fmt.Println(`Usage: questrig migrate <action> [arguments]

Actions:
  up                  Apply all pending migrations
  down                Roll back the most recent migration
  status              Show current migration version and state
  version <n>         Migrate up or down to version n
  force <n>           Force the version marker to n (dirty-state recovery)
  help                Show this help

The database path comes from the -db flag (default questrig.db).`)
}
