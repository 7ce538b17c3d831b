package models

import (
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleVersion is an append-only snapshot written on every ledger mutation.
// Snapshot holds the JSON encoded sale with its lines.
type SaleVersion struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	SaleID    uuid.UUID               `gorm:"column:sale_id;type:uuid;not null;uniqueIndex:idx_sale_versions_sale_version"`
	Version   int                     `gorm:"column:version;not null;uniqueIndex:idx_sale_versions_sale_version"`
	Action    enums.SaleVersionAction `gorm:"column:action;type:text;not null"`
	ActorID   uuid.UUID               `gorm:"column:actor_id;type:uuid;not null"`
	Reason    *string                 `gorm:"column:reason"`
	Snapshot  string                  `gorm:"column:snapshot;type:jsonb;not null"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (v *SaleVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
