package postgres

import (
	"database/sql"
	"time"
)

type recordTableModel struct {
	LeagueID        int64          `db:"league_id"`
	Name            string         `db:"name"`
	Country         sql.NullString `db:"country"`
	Year            int            `db:"year"`
	Payload         string         `db:"payload"`
	Confidence      sql.NullString `db:"confidence"`
	NextCheck       sql.NullString `db:"next_check"`
	ChecksPerformed int            `db:"checks_performed"`
	ShouldRemove    bool           `db:"should_remove"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	DeletedAt       *time.Time     `db:"deleted_at"`
}

type recordInsertModel struct {
	LeagueID        int64   `db:"league_id"`
	Name            string  `db:"name"`
	Country         *string `db:"country"`
	Year            int     `db:"year"`
	Payload         string  `db:"payload"`
	Confidence      *string `db:"confidence"`
	NextCheck       *string `db:"next_check"`
	ChecksPerformed int     `db:"checks_performed"`
	ShouldRemove    bool    `db:"should_remove"`
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
