// Package taskboard provides a read-only summary of the team task board.
// Roundhouse never writes to the board; an unreachable board degrades the
// status view instead of failing it.
package taskboard

import (
	"context"
	"fmt"

	"github.com/zulandar/roundhouse/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Card mirrors one task-board item. Only the columns the summary reads are
// mapped; the board schema is owned elsewhere.
type Card struct {
	ID     uint   `gorm:"primaryKey"`
	Title  string `gorm:"size:255"`
	Team   string `gorm:"size:64;index"`
	Status string `gorm:"size:32;index"`
}

// Summary is the read-only view contributed to AggregatedStatus.
type Summary struct {
	Total      int64       `json:"total"`
	InProgress int64       `json:"in_progress"`
	Teams      []TeamCount `json:"teams,omitempty"`
}

// TeamCount is the per-team breakdown.
type TeamCount struct {
	Team       string `json:"team"`
	Total      int64  `json:"total"`
	InProgress int64  `json:"in_progress"`
}

// Board queries a task board over a GORM connection.
type Board struct {
	db    *gorm.DB
	table string
}

// Open connects to the configured board. The sqlite driver reads a local
// database file; the mysql driver reaches a Dolt/MySQL server.
func Open(cfg config.TaskBoardConfig) (*Board, error) {
	var (
		db  *gorm.DB
		err error
	)
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch cfg.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("taskboard: open %s: %w", cfg.Path, err)
		}
	case "mysql":
		dsn := fmt.Sprintf("root@tcp(%s:%d)/%s?parseTime=true", cfg.Host, cfg.Port, cfg.Database)
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("taskboard: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
		}
	default:
		return nil, fmt.Errorf("taskboard: driver %q is not supported", cfg.Driver)
	}

	table := cfg.Table
	if table == "" {
		table = "cards"
	}
	return NewBoard(db, table), nil
}

// NewBoard wraps an existing GORM connection, mainly for tests.
func NewBoard(db *gorm.DB, table string) *Board {
	return &Board{db: db, table: table}
}

// Summary computes total, in-progress, and per-team counts in one pass over
// the board table.
func (b *Board) Summary(ctx context.Context) (*Summary, error) {
	if b == nil || b.db == nil {
		return nil, fmt.Errorf("taskboard: board is not connected")
	}

	var teams []TeamCount
	err := b.db.WithContext(ctx).
		Table(b.table).
		Select("team, count(*) as total, sum(case when status = 'in_progress' then 1 else 0 end) as in_progress").
		Group("team").
		Order("team").
		Scan(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("taskboard: summarize %s: %w", b.table, err)
	}

	s := &Summary{Teams: teams}
	for _, t := range teams {
		s.Total += t.Total
		s.InProgress += t.InProgress
	}
	return s, nil
}

// Counts implements the reporter's TaskCounter with the summary totals.
func (b *Board) Counts(ctx context.Context) (total, active int64, err error) {
	s, err := b.Summary(ctx)
	if err != nil {
		return 0, 0, err
	}
	return s.Total, s.InProgress, nil
}
