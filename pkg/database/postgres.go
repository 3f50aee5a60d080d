package database

import (
	"log"

	"github.com/nannyexpress/booking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Nanny{}, &models.NannyBlackout{}, &models.Booking{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial unique index: one active shift (clocked in, not yet out) per
	// nanny, enforced in the store so it holds under concurrent writers
	Migrate(db)

	return db
}

// Migrate applies the raw indexes AutoMigrate cannot express.
func Migrate(db *gorm.DB) {
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_active_shift
		ON bookings (nanny_id)
		WHERE clock_in IS NOT NULL AND clock_out IS NULL AND deleted_at IS NULL
	`)
}
