package model

import (
	"time"

	"github.com/Guyuepp/artfeed/domain"
)

// Like is one row of the likes relation. (user_id, post_id) is the primary
// key, which is what makes repeated inserts of the same like harmless.
type Like struct {
	UserID    string `gorm:"column:user_id;type:char(36);primaryKey"`
	PostID    int64  `gorm:"column:post_id;primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

func (Like) TableName() string {
	return "likes"
}

func NewLikeFromDomain(l domain.Like) Like {
	return Like{
		UserID:    l.UserID,
		PostID:    l.PostID,
		CreatedAt: l.CreatedAt,
	}
}
