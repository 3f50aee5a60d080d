package consumer

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NannyConsumer syncs the nanny roster into the local database so conflict
// checks and pricing never need a cross-service call.
type NannyConsumer struct {
	db *gorm.DB
}

func NewNannyConsumer(db *gorm.DB) *NannyConsumer {
	return &NannyConsumer{db: db}
}

type nannyMessage struct {
	models.Nanny
	BlackoutDates []string `json:"blackout_dates"`
}

// Start listens for roster messages and upserts nannies into the local DB.
func (nc *NannyConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			nc.handleMessage(msg)
		}
		log.Println("[NannyConsumer] channel closed, stopping consumer")
	}()
}

func (nc *NannyConsumer) handleMessage(msg amqp.Delivery) {
	var payload nannyMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		log.Printf("[NannyConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}

	// Upsert: the roster service owns the record, same ID on both sides
	result := nc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "rate", "status", "updated_at"}),
	}).Create(&payload.Nanny)

	if result.Error != nil {
		log.Printf("[NannyConsumer] failed to upsert nanny %d: %v", payload.ID, result.Error)
		msg.Nack(false, true) // requeue
		return
	}

	if strings.HasSuffix(msg.RoutingKey, ".blackouts") || len(payload.BlackoutDates) > 0 {
		nc.replaceBlackouts(payload.ID, payload.BlackoutDates)
	}

	log.Printf("[NannyConsumer] synced nanny %d: %s", payload.ID, payload.Name)
	msg.Ack(false)
}

// replaceBlackouts swaps the nanny's unavailable-date list wholesale; the
// roster message always carries the full current set.
func (nc *NannyConsumer) replaceBlackouts(nannyID uint, dates []string) {
	blackouts := make([]models.NannyBlackout, 0, len(dates))
	for _, d := range dates {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			log.Printf("[NannyConsumer] skipping bad blackout date %q: %v", d, err)
			continue
		}
		blackouts = append(blackouts, models.NannyBlackout{NannyID: nannyID, Date: day})
	}

	err := nc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("nanny_id = ?", nannyID).Delete(&models.NannyBlackout{}).Error; err != nil {
			return err
		}
		if len(blackouts) == 0 {
			return nil
		}
		return tx.Create(&blackouts).Error
	})
	if err != nil {
		log.Printf("[NannyConsumer] failed to replace blackouts for nanny %d: %v", nannyID, err)
	}
}
