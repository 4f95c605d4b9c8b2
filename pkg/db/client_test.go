package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectDefaultsToPostgres(t *testing.T) {
	client := &Client{}
	if got := client.Dialect(); got != DialectPostgres {
		t.Fatalf("expected postgres dialect, got %q", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_test_models_name ON test_models(name)").Error; err != nil {
		t.Fatalf("create index: %v", err)
	}
	if err := db.Create(&testModel{Name: "dup"}).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := db.Create(&testModel{Name: "dup"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Fatal("plain error must not be a unique violation")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil must not be a unique violation")
	}
}

func TestIsUniqueViolationPrimaryKeyAndConstraint(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&testModel{ID: 7, Name: "a"}).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := db.Create(&testModel{ID: 7, Name: "b"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected primary key violation, got %v", err)
	}
	if IsUniqueViolation(err, "some_other_constraint") {
		t.Fatalf("constraint filter should not match %v", err)
	}
}

func TestNilClientErrors(t *testing.T) {
	var client *Client
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from nil client")
	}
	if err := client.Close(); err == nil {
		t.Fatal("expected close error from nil client")
	}
}
