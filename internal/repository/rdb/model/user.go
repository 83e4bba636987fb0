package model

import (
	"time"

	"github.com/Guyuepp/artfeed/domain"
)

type User struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	Name      string `gorm:"type:varchar(80);not null"`
	Username  string `gorm:"type:varchar(45);not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

func (m *User) ToDomain() domain.User {
	return domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Username:  m.Username,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
