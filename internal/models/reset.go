package models

import "time"

// MonthlyReset records that the totals were reset at the start of a month.
// There is at most one row per month.
type MonthlyReset struct {
	Month string `gorm:"primaryKey"` // YYYY-MM in UTC
	At    time.Time
}
