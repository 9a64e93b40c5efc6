package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aliuyar1234/taskboard/internal/auth"
	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/users"
	"github.com/joho/godotenv"
)

func runAdmin(args []string) int {
	if len(args) == 0 {
		printAdminUsage()
		return 2
	}

	_ = godotenv.Load()

	switch args[0] {
	case "reset-password":
		return runResetPassword(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown admin command: %s\n", args[0])
		printAdminUsage()
		return 2
	}
}

func printAdminUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  taskboard admin reset-password --email user@example.com [--password <new>] [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "  taskboard admin migrate [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Notes:")
	fmt.Fprintln(os.Stderr, "  - If --password is omitted, a random password is generated and printed.")
	fmt.Fprintln(os.Stderr, "  - --db-dsn defaults to TB_DB_DSN.")
}

func resolveDSN(flagValue string) (string, bool) {
	dsn := strings.TrimSpace(flagValue)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("TB_DB_DSN"))
	}
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "--db-dsn is required (or set TB_DB_DSN)")
		return "", false
	}
	return dsn, true
}

func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var dbDSN string
	fs.StringVar(&dbDSN, "db-dsn", "", "Postgres DSN (defaults to TB_DB_DSN)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	dsn, ok := resolveDSN(dbDSN)
	if !ok {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	applied, err := db.RunMigrations(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}

	if len(applied) == 0 {
		fmt.Fprintln(os.Stdout, "Schema is up to date.")
		return 0
	}
	for _, name := range applied {
		fmt.Fprintf(os.Stdout, "Applied %s\n", name)
	}
	return 0
}

func runResetPassword(args []string) int {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var email string
	var password string
	var dbDSN string

	fs.StringVar(&email, "email", "", "User email")
	fs.StringVar(&password, "password", "", "New password (if empty, generates one)")
	fs.StringVar(&dbDSN, "db-dsn", "", "Postgres DSN (defaults to TB_DB_DSN)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Fprintln(os.Stderr, "--email is required")
		return 2
	}

	dsn, ok := resolveDSN(dbDSN)
	if !ok {
		return 2
	}

	generated := false
	if password == "" {
		pw, err := generatePassword(24)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate password: %v\n", err)
			return 1
		}
		password = pw
		generated = true
	}

	if len(password) < auth.MinPasswordLength {
		fmt.Fprintf(os.Stderr, "Password must be at least %d characters\n", auth.MinPasswordLength)
		return 2
	}

	passwordHash, err := auth.HashPassword(password, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	sqlDB := db.OpenSQL(pool)
	defer sqlDB.Close()

	if err := users.NewService(sqlDB).SetPasswordHash(ctx, email, passwordHash); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			fmt.Fprintf(os.Stderr, "No user found with email %q\n", email)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to update password: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stdout, "Password updated.")
	if generated {
		fmt.Fprintln(os.Stdout, password)
	}

	return 0
}

func generatePassword(bytesLen int) (string, error) {
	if bytesLen < 8 {
		bytesLen = 8
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
