package model

import "time"

// Account is a player profile. Children sign in with a short PIN.
type Account struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileName string     `gorm:"uniqueIndex;size:32;not null" json:"profile_name"`
	PINHash     string     `gorm:"size:64;not null" json:"-"`
	Character   string     `gorm:"size:32" json:"character"` // preferred starting character
	Status      int        `gorm:"default:1" json:"status"`  // 0=disabled 1=normal
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `gorm:"size:45" json:"last_login_ip"`
}
