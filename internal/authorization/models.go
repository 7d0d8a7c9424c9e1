package authorization

import (
	"time"

	"gorm.io/gorm"
)

// AdminMember binds a back-office user to a reporting role.
type AdminMember struct {
	Username  string    `gorm:"primaryKey;type:varchar(128)"`
	Role      string    `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (AdminMember) TableName() string { return "admin_members" }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&AdminMember{})
}
