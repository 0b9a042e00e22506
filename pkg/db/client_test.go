package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type cartRow struct {
	ID  int
	Key string `gorm:"uniqueIndex"`
}

func newTestClient(t *testing.T, name string, logg *logger.Logger) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		DSN:       "file:" + name + "?mode=memory&cache=shared",
		SlowQuery: time.Hour,
	}, true, logg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&cartRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, true, nil); err == nil {
		t.Fatal("expected missing DSN to fail")
	}
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	cases := map[string]string{
		"file:jls.db":                      "file:jls.db?_foreign_keys=on",
		"file:jls.db?cache=shared":         "file:jls.db?cache=shared&_foreign_keys=on",
		"file:jls.db?_foreign_keys=off":    "file:jls.db?_foreign_keys=off",
		"file::memory:?_fk=1&cache=shared": "file::memory:?_fk=1&cache=shared",
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newTestClient(t, "db_tx", nil)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&cartRow{Key: "cart-storage:a"}).Error
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&cartRow{Key: "cart-storage:b"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return the callback error")
	}

	var count int64
	if err := client.DB().Model(&cartRow{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 row, got %d", count)
	}
}

func TestPingAndDriver(t *testing.T) {
	client := newTestClient(t, "db_ping", nil)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if client.Driver() != "sqlite" || Wrap(client.DB()).Driver() != "sqlite" {
		t.Fatalf("unexpected driver %q", client.Driver())
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	if !IsUniqueViolation(pgErr, "") || !IsUniqueViolation(pgErr, "users_email_key") {
		t.Fatal("expected pg unique violation")
	}
	if IsUniqueViolation(pgErr, "other_key") {
		t.Fatal("unexpected constraint match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if !IsUniqueViolation(&pq.Error{Code: "23505"}, "") {
		t.Fatal("expected pq unique violation")
	}
	if IsUniqueViolation(errors.New("duplicate key value"), "") {
		t.Fatal("untyped errors should not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
}

func TestIsUniqueViolationOnSQLite(t *testing.T) {
	client := newTestClient(t, "db_unique", nil)
	db := client.DB()
	if err := db.Create(&cartRow{Key: "cart-storage:x"}).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := db.Create(&cartRow{Key: "cart-storage:x"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if !IsUniqueViolation(err, "cart_rows.key") {
		t.Fatalf("expected column match in sqlite message, got %v", err)
	}
}

func TestQueryLoggerReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	client := newTestClient(t, "db_logger", logg)

	_ = client.DB().Exec("SELECT * FROM missing_table").Error
	if !bytes.Contains(buf.Bytes(), []byte("db.query_failed")) {
		t.Fatalf("expected failed query to be logged, got %s", buf.String())
	}

	buf.Reset()
	var row cartRow
	_ = client.DB().Where("key = ?", "absent").First(&row).Error
	if bytes.Contains(buf.Bytes(), []byte("db.query_failed")) {
		t.Fatalf("record not found should not be logged, got %s", buf.String())
	}
}
