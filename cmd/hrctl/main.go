// Command hrctl performs operator tasks against the hrpass database:
// creating admin accounts, seeding data from YAML and applying migrations.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/hrpass/internal/config"
	"github.com/iliyamo/hrpass/internal/database"
	"github.com/iliyamo/hrpass/internal/repository"
	"github.com/iliyamo/hrpass/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "create-admin":
		err = createAdmin(args)
	case "seed":
		err = seed(args)
	case "migrate":
		err = migrate()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: hrctl <command> [flags]

Commands:
  create-admin -email <email> -password <password>   create an admin and print its TOTP secret
  seed -f <seed.yaml>                                 load admins and recruitment requests
  migrate                                             apply database migrations`)
}

func openDB(ctx context.Context) (*sql.DB, config.Config, error) {
	cfg := config.LoadDB()
	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxConns: 2, Migrate: true,
	})
	return db, cfg, err
}

func newAdminAuth(db *sql.DB, cfg config.Config) *service.AdminAuth {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	audit := repository.NewAuditRepo(db, log)
	return service.NewAdminAuth(repository.NewAdminRepo(db), audit, nil,
		service.AdminPolicy{BcryptCost: cfg.BcryptCost}, log, nil)
}

func createAdmin(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password (min 8 characters)")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, cfg, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	secret, url, err := newAdminAuth(db, cfg).CreateAdmin(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("admin created: %s\nTOTP secret: %s\notpauth URL:  %s\n", repository.NormalizeEmail(*email), secret, url)
	return nil
}

func migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, _, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Println("migrations applied")
	return nil
}
