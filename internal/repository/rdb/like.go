package rdb

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository/rdb/model"
)

// originSetting is read by the postgres likes_notify trigger
const originSetting = "artfeed.origin"

type likeRepository struct {
	DB     *gorm.DB
	origin string
}

var _ domain.LikeRepository = (*likeRepository)(nil)

// NewLikeRepository will create an implementation of domain.LikeRepository.
// On postgres, writes are tagged with origin so change notifications can be
// traced back to this instance.
func NewLikeRepository(db *gorm.DB, origin string) *likeRepository {
	return &likeRepository{DB: db, origin: origin}
}

func (m *likeRepository) Exists(ctx context.Context, userID string, postID int64) (bool, error) {
	var n int64
	err := m.DB.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	return n > 0, err
}

func (m *likeRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := m.DB.WithContext(ctx).
		Model(&model.Like{}).
		Where("post_id = ?", postID).
		Count(&n).Error
	return n, err
}

// InsertBatch writes every like in one statement; rows already present are skipped
func (m *likeRepository) InsertBatch(ctx context.Context, likes []domain.Like) error {
	if len(likes) == 0 {
		return nil
	}
	rows := make([]model.Like, len(likes))
	for i := range likes {
		rows[i] = model.NewLikeFromDomain(likes[i])
	}
	return m.write(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// Delete is a no-op when the row is already gone
func (m *likeRepository) Delete(ctx context.Context, l domain.Like) error {
	return m.write(ctx, func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND post_id = ?", l.UserID, l.PostID).
			Delete(&model.Like{}).Error
	})
}

func (m *likeRepository) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := m.DB.WithContext(ctx)
	if m.origin == "" || db.Dialector.Name() != DialectPostgres {
		return fn(db)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_config(?, ?, true)", originSetting, m.origin).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}
