package taskboard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zulandar/roundhouse/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestBoard(t *testing.T, cards []Card) *Board {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "board.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Card{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(cards) > 0 {
		if err := db.Create(&cards).Error; err != nil {
			t.Fatalf("seed cards: %v", err)
		}
	}
	return NewBoard(db, "cards")
}

func TestSummary_Counts(t *testing.T) {
	board := openTestBoard(t, []Card{
		{Title: "a", Team: "backend", Status: "open"},
		{Title: "b", Team: "backend", Status: "in_progress"},
		{Title: "c", Team: "backend", Status: "in_progress"},
		{Title: "d", Team: "frontend", Status: "done"},
		{Title: "e", Team: "frontend", Status: "in_progress"},
	})

	s, err := board.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	if s.InProgress != 3 {
		t.Errorf("InProgress = %d, want 3", s.InProgress)
	}
	if len(s.Teams) != 2 {
		t.Fatalf("len(Teams) = %d, want 2", len(s.Teams))
	}
	// Ordered by team name.
	if s.Teams[0].Team != "backend" || s.Teams[0].Total != 3 || s.Teams[0].InProgress != 2 {
		t.Errorf("Teams[0] = %+v, want backend 3/2", s.Teams[0])
	}
	if s.Teams[1].Team != "frontend" || s.Teams[1].Total != 2 || s.Teams[1].InProgress != 1 {
		t.Errorf("Teams[1] = %+v, want frontend 2/1", s.Teams[1])
	}
}

func TestSummary_EmptyBoard(t *testing.T) {
	board := openTestBoard(t, nil)
	s, err := board.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Total != 0 || s.InProgress != 0 || len(s.Teams) != 0 {
		t.Errorf("summary = %+v, want all zero", s)
	}
}

func TestSummary_MissingTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "empty.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	board := NewBoard(db, "cards")
	if _, err := board.Summary(context.Background()); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestCounts(t *testing.T) {
	board := openTestBoard(t, []Card{
		{Title: "a", Team: "backend", Status: "in_progress"},
		{Title: "b", Team: "backend", Status: "open"},
	})
	total, active, err := board.Counts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || active != 1 {
		t.Errorf("counts = %d/%d, want 2/1", total, active)
	}
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	board, err := Open(config.TaskBoardConfig{Driver: "sqlite", Path: path, Table: "cards"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if board == nil {
		t.Fatal("board is nil")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(config.TaskBoardConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSummary_NilBoard(t *testing.T) {
	var board *Board
	if _, err := board.Summary(context.Background()); err == nil {
		t.Fatal("expected error for nil board")
	}
}
