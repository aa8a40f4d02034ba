package models

import (
	"fmt"
	"time"
)

// YearCounter stores the last issued appointment sequence for one calendar year.
// Rows are created lazily by the first allocation of a year and are only ever
// moved backwards by the administrative reset.
type YearCounter struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Year      int       `gorm:"not null;index:idx_year_counters_year" json:"year"`
	Seq       int64     `gorm:"not null" json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (YearCounter) TableName() string { return "year_counters" }

// YearCounterName is the row key for a year's appointment counter
func YearCounterName(prefix string, year int) string {
	return fmt.Sprintf("%s:%d", prefix, year)
}
