package types

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Decimal is an amount of money that is stored without loss of precision.
//
// sqlite gives DECIMAL columns numeric affinity and keeps only 15 significant
// digits of them. Decimals are therefore stored as text on sqlite.
type Decimal struct {
	decimal.Decimal
}

// NewDecimal returns d as a Decimal.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{d}
}

// Value returns the exact string representation for the SQL driver.
func (d Decimal) Value() (driver.Value, error) {
	return d.Decimal.String(), nil
}

// Scan reads the value from the database.
func (d *Decimal) Scan(value any) error {
	return d.Decimal.Scan(value)
}

// GormDBDataType defines the column type for each database.
func (Decimal) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "TEXT"
	}
	return "DECIMAL(20,8)"
}
