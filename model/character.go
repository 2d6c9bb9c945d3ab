package model

import (
	"time"

	"gorm.io/datatypes"
)

// CharacterRecord is the persisted form of a scenario character.
type CharacterRecord struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Alias        string `gorm:"index:idx_char_alias;size:64;not null" json:"alias"`
	Name         string `gorm:"size:64" json:"name"`
	Class        string `gorm:"size:16;not null" json:"class"`
	Faction      string `gorm:"size:16" json:"faction"`
	Level        int    `gorm:"default:1" json:"level"`
	Exp          int    `gorm:"default:0" json:"exp"`
	Gold         int    `gorm:"default:0" json:"gold"`
	ResourceType string `gorm:"size:16" json:"resource_type"`
	HP           int    `gorm:"not null" json:"hp"`
	BaseHP       int    `gorm:"not null" json:"base_hp"`
	Resource     int    `json:"resource"`
	MaxResource  int    `json:"max_resource"`
	Strength     int    `gorm:"default:10" json:"strength"`
	Agility      int    `gorm:"default:10" json:"agility"`
	Intellect    int    `gorm:"default:10" json:"intellect"`
	Stamina      int    `gorm:"default:10" json:"stamina"`
	Spirit       int    `gorm:"default:10" json:"spirit"`

	// Overrides holds the explicitly set derived attributes by name.
	Overrides datatypes.JSON `json:"overrides"`
	Equipment datatypes.JSON `json:"equipment"`
	Skills    datatypes.JSON `json:"skills"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
