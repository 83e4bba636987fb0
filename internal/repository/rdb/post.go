package rdb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository"
	"github.com/Guyuepp/artfeed/internal/repository/rdb/model"
)

type postRepository struct {
	DB *gorm.DB
}

// this layer only talks to the database
var _ domain.PostDBRepository = (*postRepository)(nil)

func NewPostDBRepository(db *gorm.DB) *postRepository {
	return &postRepository{db}
}

func (m *postRepository) Fetch(ctx context.Context, category string, cursor string, num int64) ([]domain.Post, error) {
	repository.PageVerify(&num)

	query := m.DB.WithContext(ctx).Model(&model.Post{})
	if cursor != "" {
		decodedCursor, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, domain.ErrBadParamInput
		}
		query = query.Where("created_at < ?", decodedCursor)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var posts []model.Post
	err := query.Order("created_at DESC").Limit(int(num)).Find(&posts).Error
	if err != nil {
		return nil, err
	}

	res := make([]domain.Post, len(posts))
	for i := range posts {
		res[i] = posts[i].ToDomain()
	}
	return res, nil
}

func (m *postRepository) GetByID(ctx context.Context, id int64) (domain.Post, error) {
	var post model.Post
	err := m.DB.WithContext(ctx).First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Post{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Post{}, err
	}
	return post.ToDomain(), nil
}

func (m *postRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []model.Post
	err := m.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	res := make([]domain.Post, len(posts))
	for i := range posts {
		res[i] = posts[i].ToDomain()
	}
	return res, nil
}

func (m *postRepository) FetchIDs(ctx context.Context, cursor, limit int64) (ids []int64, err error) {
	err = m.DB.WithContext(ctx).
		Model(&model.Post{}).
		Where("id > ?", cursor).
		Order("id").
		Limit(int(limit)).
		Pluck("id", &ids).Error
	return
}
