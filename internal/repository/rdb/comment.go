package rdb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository"
	"github.com/Guyuepp/artfeed/internal/repository/rdb/model"
)

type commentRepository struct {
	DB *gorm.DB
}

var _ domain.CommentRepository = (*commentRepository)(nil)

func NewCommentRepository(db *gorm.DB) *commentRepository {
	return &commentRepository{
		DB: db,
	}
}

func (c *commentRepository) Store(ctx context.Context, comment *domain.Comment) error {
	row := model.NewCommentFromDomain(comment)
	if err := c.DB.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	comment.ID = row.ID
	comment.CreatedAt = row.CreatedAt
	return nil
}

// Delete removes a comment written by userID
func (c *commentRepository) Delete(ctx context.Context, id int64, userID string) error {
	result := c.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Comment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrForbidden
	}
	return nil
}

func (c *commentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment model.Comment
	err := c.DB.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res := comment.ToDomain()
	return &res, nil
}

func (c *commentRepository) FetchRoots(ctx context.Context, postID int64, cursor string, limit int64) ([]*domain.Comment, error) {
	repository.PageVerify(&limit)

	query := c.DB.WithContext(ctx).Where("post_id = ? AND parent_id = 0", postID)
	if cursor != "" {
		decodedCursor, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, domain.ErrBadParamInput
		}
		query = query.Where("created_at < ?", decodedCursor)
	}

	var comments []model.Comment
	err := query.Order("created_at DESC").Limit(int(limit)).Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return toDomainComments(comments), nil
}

func (c *commentRepository) FetchReplies(ctx context.Context, rootIDs []int64) ([]*domain.Comment, error) {
	if len(rootIDs) == 0 {
		return nil, nil
	}
	var comments []model.Comment
	err := c.DB.WithContext(ctx).
		Where("root_id IN ?", rootIDs).
		Order("created_at").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return toDomainComments(comments), nil
}

func (c *commentRepository) CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	res := make(map[int64]int64, len(postIDs))
	if len(postIDs) == 0 {
		return res, nil
	}

	var rows []postCount
	err := c.DB.WithContext(ctx).
		Model(&model.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		res[r.PostID] = r.Total
	}
	return res, nil
}

type postCount struct {
	PostID int64
	Total  int64
}

func toDomainComments(comments []model.Comment) []*domain.Comment {
	res := make([]*domain.Comment, 0, len(comments))
	for i := range comments {
		c := comments[i].ToDomain()
		res = append(res, &c)
	}
	return res
}
