package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	OutboxPending = "PENDING"
	OutboxSent    = "SENT"
)

// OutboxMessage is the transactional outbox row relayed to the message bus.
type OutboxMessage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string    `gorm:"type:varchar(255);not null" json:"topic"`
	Key       string    `gorm:"type:varchar(255)" json:"key"`
	Payload   []byte    `gorm:"type:text;not null" json:"payload"`
	Status    string    `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// CreateOutboxMessage writes the event in the caller's transaction so it commits with the business rows.
func CreateOutboxMessage(tx *gorm.DB, topic, key string, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := OutboxMessage{
		Topic:   topic,
		Key:     key,
		Payload: payloadBytes,
		Status:  OutboxPending,
	}

	return tx.Create(&msg).Error
}
