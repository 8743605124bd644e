package model

import (
	"time"

	"gorm.io/datatypes"
)

// SaveBlob is one persisted runtime subsystem state (mission manager, world
// state, companions), keyed by storage key.
type SaveBlob struct {
	Key       string         `gorm:"primaryKey;size:128" json:"key"`
	Version   int            `gorm:"not null;default:1" json:"version"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:milli" json:"updated_at"`
}
