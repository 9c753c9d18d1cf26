package itests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"FMQuery/internal/db"
)

const testDBName = "fmquery_test"

// DeriveTestDSN points baseDSN at the throwaway test database and returns an
// admin DSN on the "postgres" database for creating and dropping it.
func DeriveTestDSN(baseDSN string) (testDSN, adminDSN string, err error) {
	u, err := url.Parse(baseDSN)
	if err != nil {
		return "", "", fmt.Errorf("parse DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", errors.New("only URL DSN supported: postgres://...")
	}
	if host := u.Hostname(); host != "localhost" && host != "127.0.0.1" {
		return "", "", fmt.Errorf("refuse non-local host for tests: %s", host)
	}

	u.Path = "/" + testDBName
	testDSN = u.String()
	u.Path = "/postgres"
	adminDSN = u.String()
	return testDSN, adminDSN, nil
}

func CreateTestDatabase(adminDSN, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	var exists bool
	if err := conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname=$1)`, dbName,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = conn.ExecContext(ctx, `CREATE DATABASE `+pqIdent(dbName))
	return err
}

func DropTestDatabase(adminDSN, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, _ = conn.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, dbName)

	_, err = conn.ExecContext(ctx, `DROP DATABASE IF EXISTS `+pqIdent(dbName))
	return err
}

func pqIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// SetupTestDB creates the test database and applies the embedded migrations.
// The returned teardown drops it again.
func SetupTestDB(baseDSN string) (testDSN string, teardown func() error, err error) {
	testDSN, adminDSN, err := DeriveTestDSN(baseDSN)
	if err != nil {
		return "", nil, err
	}
	if os.Getenv("APP_ENV") == "production" {
		return "", nil, errors.New("APP_ENV=production, aborting tests")
	}

	if err := CreateTestDatabase(adminDSN, testDBName); err != nil {
		return "", nil, fmt.Errorf("create DB %q: %w (dsn %s)", testDBName, err, redactDSN(baseDSN))
	}
	log.Printf("test DB %q created", testDBName)
	if err := db.Migrate(testDSN); err != nil {
		_ = DropTestDatabase(adminDSN, testDBName)
		return "", nil, err
	}

	teardown = func() error {
		return DropTestDatabase(adminDSN, testDBName)
	}
	return testDSN, teardown, nil
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	username := u.User.Username()
	if username == "" {
		return dsn
	}
	u.User = url.UserPassword(username, "******")
	return u.String()
}
