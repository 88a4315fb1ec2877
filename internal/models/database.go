package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	go_sqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the SQLite database at dsn, migrates it and configures
// the connection pool.
func Connect(dsn string) (*gorm.DB, error) {
	config := gormConfig()

	// Migration runs with foreign keys disabled as sqlite copies tables
	// for every column change
	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = Migrate(db)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.Close()

	// Now, reconnect with foreign keys enabled
	dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)", dsn)
	db, err = gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err = db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	sqlDB.SetConnMaxLifetime(time.Hour)

	// A single connection serializes all writers, which is what keeps
	// concurrent updates of a category total from getting lost
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	return db, registerCallbacks(db)
}

// ConnectPostgres opens a PostgreSQL database. Concurrent writers are
// serialized by row locks taken by the ledger.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = Migrate(db)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, registerCallbacks(db)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: &logger{
			Logger: log.Logger,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Migrate migrates all models to the schema defined in the code.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(User{}, Category{}, Expense{}, Attachment{}, Alert{}, Reference{}, MonthlyReset{})
	if err != nil {
		return fmt.Errorf("error during DB migration: %w", err)
	}

	return nil
}

func registerCallbacks(db *gorm.DB) error {
	callbacks := []struct {
		processor interface {
			Register(string, func(*gorm.DB)) error
		}
		name string
		fn   func(*gorm.DB)
	}{
		{db.Callback().Query().After("*"), "tally:after_query", queryCallback},
		{db.Callback().Query().After("*"), "tally:after_query_general", generalCallback},
		{db.Callback().Create().After("*"), "tally:after_create", createUpdateCallback},
		{db.Callback().Create().After("*"), "tally:after_create_general", generalCallback},
		{db.Callback().Update().After("*"), "tally:after_update", createUpdateCallback},
		{db.Callback().Update().After("*"), "tally:after_update_general", generalCallback},
		{db.Callback().Delete().After("*"), "tally:after_delete", createUpdateCallback},
		{db.Callback().Delete().After("*"), "tally:after_delete_general", generalCallback},
		{db.Callback().Raw().After("*"), "tally:after_raw_general", generalCallback},
	}

	for _, c := range callbacks {
		if err := c.processor.Register(c.name, c.fn); err != nil {
			return err
		}
	}

	return nil
}

var pluralSuffix = regexp.MustCompile("ies$")

// queryCallback replaces the generic "no record" error with a more user
// friendly one
func queryCallback(db *gorm.DB) {
	if errors.Is(db.Error, gorm.ErrRecordNotFound) {
		// Use the table name as information about the type of resource
		name := strings.ReplaceAll(db.Statement.Table, "_", " ")
		name = pluralSuffix.ReplaceAllString(name, "y")
		name = strings.TrimSuffix(name, "s")

		db.Error = fmt.Errorf("%w %s matching your query", ErrResourceNotFound, name)
	}
}

// uniqueViolations maps unique indexes to the errors returned to users.
// sqlite reports the columns, postgres reports the index name.
var uniqueViolations = []struct {
	sqlite   string
	postgres string
	err      error
}{
	{"UNIQUE constraint failed: users.email", "user_email", ErrEmailNotUnique},
	{"UNIQUE constraint failed: categories.owner_id, categories.name", "category_owner_name", ErrCategoryNameNotUnique},
	{"UNIQUE constraint failed: alerts.owner_id, alerts.name", "alert_owner_name", ErrAlertNameNotUnique},
	{"UNIQUE constraint failed: attachments.expense_id", "attachment_expense", ErrAttachmentExists},
}

// createUpdateCallback inspects errors returned by the database for create,
// update and delete calls and replaces them with user friendly ones
func createUpdateCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	msg := db.Error.Error()
	for _, v := range uniqueViolations {
		if strings.Contains(msg, v.sqlite) || (strings.Contains(msg, "duplicate key") && strings.Contains(msg, fmt.Sprintf("%q", v.postgres))) {
			db.Error = v.err
			return
		}
	}

	if strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "violates foreign key constraint") {
		db.Error = ErrReferencedResourceAbsent
	}
}

// generalCallback handles unspecified errors.
//
// For these errors, we cannot provide the user with a helpful message.
// Instead, the error is logged and we return a general message to users.
func generalCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	// "sql: database is closed" is hard-coded in the sql module
	if db.Error.Error() == "sql: database is closed" || reflect.TypeOf(db.Error) == reflect.TypeOf(&go_sqlite.Error{}) {
		log.Error().Msgf("%T: %v", db.Error, db.Error.Error())
		db.Error = ErrGeneral
	}
}
