package feed

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository"
)

const (
	countConcurrency = 8
	bloomBatchSize   = 1000
)

// LikeCounter is the part of the like aggregator the ranking pass needs
type LikeCounter interface {
	GetLikeCount(ctx context.Context, postID int64) int64
}

// CommentCounter counts comments of many posts at once
type CommentCounter interface {
	CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error)
}

type Service struct {
	postRepo  domain.PostRepository
	likes     LikeCounter
	comments  CommentCounter
	bloomRepo domain.BloomRepository
	rnd       RandomSource
}

var _ domain.FeedUsecase = (*Service)(nil)

// NewService will create a new feed service object
func NewService(p domain.PostRepository, l LikeCounter, c CommentCounter, b domain.BloomRepository, rnd RandomSource) *Service {
	if rnd == nil {
		rnd = NewTimeSeededSource()
	}
	return &Service{
		postRepo:  p,
		likes:     l,
		comments:  c,
		bloomRepo: b,
		rnd:       rnd,
	}
}

func (s *Service) Fetch(ctx context.Context, category string, cursor string, num int64, mode domain.SortMode) ([]domain.ScoredPost, string, error) {
	posts, err := s.postRepo.Fetch(ctx, category, cursor, num)
	if err != nil {
		return nil, "", err
	}
	if len(posts) == 0 {
		return []domain.ScoredPost{}, "", nil
	}

	// the cursor follows creation order whatever the ranking
	oldest := posts[0].CreatedAt
	for _, p := range posts[1:] {
		if p.CreatedAt.Before(oldest) {
			oldest = p.CreatedAt
		}
	}

	res, err := s.Rank(ctx, posts, mode)
	if err != nil {
		return nil, "", err
	}
	return res, repository.EncodeCursor(oldest), nil
}

// Rank orders posts by mode. Every call recomputes the metrics it needs.
func (s *Service) Rank(ctx context.Context, posts []domain.Post, mode domain.SortMode) ([]domain.ScoredPost, error) {
	res := make([]domain.ScoredPost, len(posts))
	for i, p := range posts {
		res[i] = domain.ScoredPost{
			Post: p,
			Metrics: domain.PostMetrics{
				PostID:    p.ID,
				LikeCount: p.Likes,
				CreatedAt: p.CreatedAt.UnixMilli(),
			},
		}
	}

	switch mode {
	case domain.SortRecent, "":
		slices.SortStableFunc(res, func(a, b domain.ScoredPost) int {
			return b.Post.CreatedAt.Compare(a.Post.CreatedAt)
		})

	case domain.SortRandom:
		s.rnd.Shuffle(len(res), func(i, j int) {
			res[i], res[j] = res[j], res[i]
		})

	case domain.SortMostLiked:
		if err := s.fillLikeCounts(ctx, res); err != nil {
			return nil, err
		}
		slices.SortStableFunc(res, func(a, b domain.ScoredPost) int {
			return cmp.Compare(b.Metrics.LikeCount, a.Metrics.LikeCount)
		})

	case domain.SortRecommended:
		if err := s.fillLikeCounts(ctx, res); err != nil {
			return nil, err
		}
		s.fillCommentCounts(ctx, res)

		candidates := make([]domain.Post, len(res))
		for i := range res {
			candidates[i] = res[i].Post
		}
		engagement := ComputeAuthorEngagement(candidates)
		for i := range res {
			res[i].Metrics.AuthorEngagement = engagement[res[i].Post.User.ID]
			res[i].Score = Score(res[i].Metrics, s.rnd)
		}
		slices.SortStableFunc(res, func(a, b domain.ScoredPost) int {
			return cmp.Compare(b.Score, a.Score)
		})

	default:
		return nil, fmt.Errorf("%w: unknown sort mode %q", domain.ErrBadParamInput, mode)
	}

	return res, nil
}

// fillLikeCounts asks the aggregator for every post concurrently.
// Counts never fail, only ctx can stop the pass.
func (s *Service) fillLikeCounts(ctx context.Context, res []domain.ScoredPost) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(countConcurrency)
	for i := range res {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := s.likes.GetLikeCount(ctx, res[i].Post.ID)
			res[i].Metrics.LikeCount = n
			res[i].Post.Likes = n
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) fillCommentCounts(ctx context.Context, res []domain.ScoredPost) {
	ids := make([]int64, len(res))
	for i := range res {
		ids[i] = res[i].Post.ID
	}

	counts, err := s.comments.CountByPosts(ctx, ids)
	if err != nil {
		logrus.Warnf("failed to count comments of %d posts, ranking without them: %v", len(ids), err)
		counts = nil
	}
	for i := range res {
		n := counts[res[i].Post.ID]
		res[i].Metrics.CommentCount = n
		res[i].Post.Comments = n
	}
}

// InitBloomFilter loads every post id into the bloom filter
func (s *Service) InitBloomFilter(ctx context.Context) error {
	var cursor, total int64
	for {
		ids, err := s.postRepo.FetchIDs(ctx, cursor, bloomBatchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}
		if err := s.bloomRepo.BulkAdd(ctx, ids); err != nil {
			return err
		}
		total += int64(len(ids))
		cursor = ids[len(ids)-1]
		if len(ids) < bloomBatchSize {
			break
		}
	}
	logrus.Infof("bloom filter initialized with %d posts", total)
	return nil
}
