package repository

import (
	"context"
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	"gorm.io/gorm"
)

// BookingFilter narrows list queries; nil fields are ignored.
type BookingFilter struct {
	Date    *time.Time
	NannyID *uint
	Status  *models.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	Find(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	FindByNannyAndDate(ctx context.Context, nannyID uint, date time.Time) ([]models.Booking, error)
	FindInRange(ctx context.Context, from, to time.Time, nannyIDs []uint, status *models.BookingStatus) ([]models.Booking, error)
	FindActiveShift(ctx context.Context, tx *gorm.DB, nannyID uint) (*models.Booking, error)
	Updates(ctx context.Context, tx *gorm.DB, bookingID uint, fields map[string]interface{}) error
	ClockInIfIdle(ctx context.Context, tx *gorm.DB, bookingID, nannyID uint, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, bookingID uint, by models.Actor) error
	Restore(ctx context.Context, bookingID uint) error
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the
// given transaction.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Find(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx)
	if filter.Date != nil {
		q = q.Where("date = ?", *filter.Date)
	}
	if filter.NannyID != nil {
		q = q.Where("nanny_id = ?", *filter.NannyID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if err := q.Order("date ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindByNannyAndDate returns the nanny's non-deleted bookings on a calendar
// day, the input set for conflict checks.
func (r *bookingRepository) FindByNannyAndDate(ctx context.Context, nannyID uint, date time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("nanny_id = ? AND date = ?", nannyID, date).
		Order("id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindInRange(ctx context.Context, from, to time.Time, nannyIDs []uint, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Where("date >= ? AND date <= ?", from, to)
	if len(nannyIDs) > 0 {
		q = q.Where("nanny_id IN ?", nannyIDs)
	}
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("date ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindActiveShift returns the nanny's in-progress shift, if any: clock_in
// set, clock_out still null.
func (r *bookingRepository) FindActiveShift(ctx context.Context, tx *gorm.DB, nannyID uint) (*models.Booking, error) {
	var booking models.Booking
	err := tx.WithContext(ctx).
		Where("nanny_id = ? AND clock_in IS NOT NULL AND clock_out IS NULL", nannyID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Updates(ctx context.Context, tx *gorm.DB, bookingID uint, fields map[string]interface{}) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(fields).Error
}

// ClockInIfIdle sets clock_in only when this booking is not already clocked
// and the nanny has no other active shift. The guard lives in the write
// path so it holds under concurrent writers; the partial unique index on
// active shifts backs it up.
func (r *bookingRepository) ClockInIfIdle(ctx context.Context, tx *gorm.DB, bookingID, nannyID uint, at time.Time) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND clock_in IS NULL", bookingID).
		Where(`NOT EXISTS (
			SELECT 1 FROM bookings b2
			WHERE b2.nanny_id = ?
			  AND b2.clock_in IS NOT NULL
			  AND b2.clock_out IS NULL
			  AND b2.deleted_at IS NULL
		)`, nannyID).
		Update("clock_in", at)
	return res.RowsAffected, res.Error
}

// SoftDelete records who deleted and hides the row in one transaction, so a
// failed delete never leaves deleted_by set on a live booking.
func (r *bookingRepository) SoftDelete(ctx context.Context, bookingID uint, by models.Actor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Booking{}).
			Where("id = ?", bookingID).
			Update("deleted_by", by).Error
		if err != nil {
			return err
		}
		return tx.Delete(&models.Booking{}, bookingID).Error
	})
}

func (r *bookingRepository) Restore(ctx context.Context, bookingID uint) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(map[string]interface{}{"deleted_at": nil, "deleted_by": nil}).Error
}
