package persistence

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every persisted model.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Run records one producer lifetime.
type Run struct {
	Base
	Domain    string     `gorm:"index;not null" json:"domain"`
	Markets   string     `gorm:"not null" json:"markets"`
	Mode      string     `gorm:"not null" json:"mode"`
	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	Trades    int64      `json:"trades"`
	Error     string     `json:"error,omitempty"`
}

func (Run) TableName() string {
	return "producer_runs"
}

func (r Run) MarketList() []string {
	if r.Markets == "" {
		return nil
	}
	return strings.Split(r.Markets, ",")
}
