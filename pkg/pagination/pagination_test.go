package pagination

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffered limit 11, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("cursor mismatch: got %+v want %+v", got, want)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %+v %v", c, err)
	}
	if _, err := ParseCursor("%%%"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := ParseCursor(EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})[:4]); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected invalid cursor for truncated value, got %v", err)
	}
	if _, err := ParseCursor(EncodeCursor(Cursor{})); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected invalid cursor for zero position, got %v", err)
	}
}

func TestBuildPage(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{uuid.New(), base}, {uuid.New(), base.Add(-time.Minute)}, {uuid.New(), base.Add(-2 * time.Minute)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := BuildPage(rows, 2, cursorOf)
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	next, err := ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if next.ID != rows[1].id {
		t.Fatalf("next cursor should point at last kept row")
	}

	last := BuildPage(rows, 5, cursorOf)
	if last.NextCursor != "" || len(last.Items) != 3 {
		t.Fatalf("expected final page without cursor, got %+v", last)
	}

	empty := BuildPage[row](nil, 5, cursorOf)
	if empty.Items == nil {
		t.Fatal("empty page should serialize as []")
	}
}

func TestKeysetScope(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	type product struct {
		ID        uuid.UUID
		CreatedAt time.Time
	}

	var rows []product
	stmt := conn.Table("products").Scopes(Keyset("products", nil, 26)).Find(&rows).Statement
	if sql := stmt.SQL.String(); !strings.Contains(sql, "ORDER BY products.created_at DESC,products.id DESC LIMIT") || strings.Contains(sql, "WHERE") {
		t.Fatalf("unexpected first page sql: %s", sql)
	}

	cursor := &Cursor{CreatedAt: time.Now(), ID: uuid.New()}
	stmt = conn.Table("products").Scopes(Keyset("products", cursor, 26)).Find(&rows).Statement
	if sql := stmt.SQL.String(); !strings.Contains(sql, "products.created_at < ?") || !strings.Contains(sql, "products.id < ?") {
		t.Fatalf("unexpected next page sql: %s", sql)
	}
	if !slices.Contains(stmt.Vars, any(cursor.ID)) {
		t.Fatalf("cursor id not bound: %v", stmt.Vars)
	}
}
