package feed

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/Guyuepp/artfeed/domain"
)

// Score weights
const (
	likeWeight    = 1.0
	commentWeight = 1.2
	ratioWeight   = 0.8
	ratioCap      = 2.0
	authorWeight  = 0.6
	randomWeight  = 0.3
)

// RandomSource supplies the exploration term of Score and the Random sort mode.
// Implementations must be safe for concurrent use.
type RandomSource interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

type globalSource struct{}

func (globalSource) Float64() float64                   { return rand.Float64() }
func (globalSource) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// NewTimeSeededSource returns the process wide source, seeded at startup
func NewTimeSeededSource() RandomSource {
	return globalSource{}
}

type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomSource returns a reproducible source
func NewRandomSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *seededSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(n, swap)
}

// Score rates one post for the recommended feed. Log terms damp runaway
// popularity; the comment/like ratio is capped at 2.
func Score(m domain.PostMetrics, rnd RandomSource) float64 {
	likes := float64(max(m.LikeCount, 0))
	comments := float64(max(m.CommentCount, 0))

	ratio := comments
	if likes > 0 {
		ratio = comments / likes
	}

	score := math.Log(likes+1) * likeWeight
	score += math.Log(comments+1) * commentWeight
	score += (math.Min(ratio, ratioCap) / ratioCap) * ratioWeight
	score += math.Log(math.Max(m.AuthorEngagement, 0)+1) * authorWeight
	if rnd != nil {
		score += rnd.Float64() * randomWeight
	}
	return score
}

// ComputeAuthorEngagement returns the average likes plus comments per post
// of every author in posts, keyed by author id.
func ComputeAuthorEngagement(posts []domain.Post) map[string]float64 {
	type acc struct {
		engagement int64
		posts      int64
	}
	sums := make(map[string]*acc)
	for _, p := range posts {
		a, ok := sums[p.User.ID]
		if !ok {
			a = &acc{}
			sums[p.User.ID] = a
		}
		a.engagement += p.Likes + p.Comments
		a.posts++
	}

	res := make(map[string]float64, len(sums))
	for author, a := range sums {
		res[author] = float64(a.engagement) / float64(a.posts)
	}
	return res
}
