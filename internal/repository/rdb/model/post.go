package model

import (
	"time"

	"github.com/Guyuepp/artfeed/domain"
)

type Post struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Title     string `gorm:"type:varchar(120);not null"`
	Category  string `gorm:"type:varchar(45);not null;index"`
	ImageURL  string `gorm:"column:image_url;not null"`
	UserID    string `gorm:"column:user_id;type:char(36);not null"`
	UpdatedAt time.Time
	CreatedAt time.Time `gorm:"index"`
}

func (Post) TableName() string {
	return "posts"
}

func (m *Post) ToDomain() domain.Post {
	return domain.Post{
		ID:        m.ID,
		Title:     m.Title,
		Category:  m.Category,
		ImageURL:  m.ImageURL,
		UpdatedAt: m.UpdatedAt,
		CreatedAt: m.CreatedAt,
		User: domain.User{
			ID: m.UserID,
		},
	}
}

func NewPostFromDomain(p *domain.Post) *Post {
	return &Post{
		ID:        p.ID,
		Title:     p.Title,
		Category:  p.Category,
		ImageURL:  p.ImageURL,
		UserID:    p.User.ID,
		UpdatedAt: p.UpdatedAt,
		CreatedAt: p.CreatedAt,
	}
}
