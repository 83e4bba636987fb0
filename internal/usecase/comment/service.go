package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository"
)

type service struct {
	commentRepo domain.CommentRepository
	userRepo    domain.UserRepository
	bloomRepo   domain.BloomRepository
}

var _ domain.CommentUsecase = (*service)(nil)

func NewService(commentRepo domain.CommentRepository, userRepo domain.UserRepository, bloomRepo domain.BloomRepository) *service {
	return &service{
		commentRepo: commentRepo,
		userRepo:    userRepo,
		bloomRepo:   bloomRepo,
	}
}

// mustExist only rejects posts the bloom filter rules out; a filter error lets the request through
func (s *service) mustExist(ctx context.Context, postID int64) error {
	exists, err := s.bloomRepo.Exists(ctx, postID)
	if err != nil {
		logrus.Warnf("bloom filter lookup failed for post %d: %v", postID, err)
		return nil
	}
	if !exists {
		logrus.Debugf("bloom filter says post %d does not exist", postID)
		return domain.ErrNotFound
	}
	return nil
}

func (s *service) Create(ctx context.Context, c *domain.Comment) error {
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return fmt.Errorf("%w: empty comment", domain.ErrBadParamInput)
	}
	if err := s.mustExist(ctx, c.PostID); err != nil {
		return err
	}

	// a reply inherits the post and root of its parent
	if c.ParentID != 0 {
		parent, err := s.commentRepo.GetByID(ctx, c.ParentID)
		if err != nil {
			return err
		}
		if parent.PostID != c.PostID {
			return fmt.Errorf("%w: parent comment belongs to another post", domain.ErrBadParamInput)
		}
		c.RootID = parent.RootID
		if c.RootID == 0 {
			c.RootID = parent.ID
		}
	} else {
		c.RootID = 0
	}
	return s.commentRepo.Store(ctx, c)
}

func (s *service) Delete(ctx context.Context, id int64, userID string) error {
	return s.commentRepo.Delete(ctx, id, userID)
}

func (s *service) FetchByPost(ctx context.Context, postID int64, cursor string, limit int64) ([]*domain.Comment, string, error) {
	if err := s.mustExist(ctx, postID); err != nil {
		return nil, "", err
	}
	repository.PageVerify(&limit)

	res, err := s.commentRepo.FetchRoots(ctx, postID, cursor, limit)
	if err != nil {
		return []*domain.Comment{}, "", err
	}
	if len(res) == 0 {
		return []*domain.Comment{}, "", nil
	}
	nextCursor := repository.EncodeCursor(res[len(res)-1].CreatedAt)

	rootIDs := make([]int64, len(res))
	for i, comment := range res {
		rootIDs[i] = comment.ID
	}

	replies, err := s.commentRepo.FetchReplies(ctx, rootIDs)
	if err != nil {
		logrus.Warnf("failed to fetch replies of post %d: %v", postID, err)
		replies = nil
	}

	replyMap := make(map[int64][]*domain.Comment)
	for _, r := range replies {
		replyMap[r.RootID] = append(replyMap[r.RootID], r)
	}
	for _, r := range res {
		if list, ok := replyMap[r.ID]; ok {
			r.Replies = list
		} else {
			r.Replies = []*domain.Comment{}
		}
	}

	s.fillAuthors(ctx, res, replies)
	return res, nextCursor, nil
}

// fillAuthors attaches user records; comments keep a nil User when the lookup fails
func (s *service) fillAuthors(ctx context.Context, groups ...[]*domain.Comment) {
	var ids []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, c := range g {
			if !seen[c.UserID] {
				seen[c.UserID] = true
				ids = append(ids, c.UserID)
			}
		}
	}
	if len(ids) == 0 {
		return
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logrus.Warnf("failed to load comment authors: %v", err)
		}
		return
	}
	byID := make(map[string]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for _, g := range groups {
		for _, c := range g {
			c.User = byID[c.UserID]
		}
	}
}
