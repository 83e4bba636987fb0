package feed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Guyuepp/artfeed/domain"
)

// constSource returns the same random value every time and reverses on shuffle
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func (constSource) Shuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func TestScoreFormula(t *testing.T) {
	m := domain.PostMetrics{LikeCount: 3, CommentCount: 1, AuthorEngagement: 2}
	want := math.Log(4)*1.0 + math.Log(2)*1.2 + ((1.0/3.0)/2.0)*0.8 + math.Log(3)*0.6 + 0.5*0.3

	assert.InDelta(t, want, Score(m, constSource(0.5)), 1e-12)
	assert.Zero(t, Score(domain.PostMetrics{}, constSource(0)))
}

func TestScoreWithoutLikesUsesCommentCountAsRatio(t *testing.T) {
	got := Score(domain.PostMetrics{CommentCount: 1}, constSource(0))
	assert.InDelta(t, math.Log(2)*1.2+0.5*0.8, got, 1e-12)
}

func TestScoreIncreasesWithLikes(t *testing.T) {
	rnd := constSource(0.42)
	for _, comments := range []int64{0, 1, 2, 3, 7, 50, 400} {
		for _, engagement := range []float64{0, 1.5, 30} {
			prev := Score(domain.PostMetrics{LikeCount: 0, CommentCount: comments, AuthorEngagement: engagement}, rnd)
			for likes := int64(1); likes <= 500; likes++ {
				cur := Score(domain.PostMetrics{LikeCount: likes, CommentCount: comments, AuthorEngagement: engagement}, rnd)
				if !assert.Greater(t, cur, prev, "likes=%d comments=%d engagement=%v", likes, comments, engagement) {
					return
				}
				prev = cur
			}
		}
	}
}

func TestScoreIncreasesWithComments(t *testing.T) {
	rnd := constSource(0.42)
	for _, likes := range []int64{0, 1, 2, 10, 1000} {
		prev := Score(domain.PostMetrics{LikeCount: likes}, rnd)
		for comments := int64(1); comments <= 500; comments++ {
			cur := Score(domain.PostMetrics{LikeCount: likes, CommentCount: comments}, rnd)
			if !assert.Greater(t, cur, prev, "likes=%d comments=%d", likes, comments) {
				return
			}
			prev = cur
		}
	}
}

func TestScoreRatioSaturates(t *testing.T) {
	ratioTerm := func(likes, comments int64) float64 {
		total := Score(domain.PostMetrics{LikeCount: likes, CommentCount: comments}, constSource(0))
		return total - math.Log(float64(likes)+1) - math.Log(float64(comments)+1)*1.2
	}

	assert.InDelta(t, 0.8, ratioTerm(1, 2), 1e-9)
	assert.InDelta(t, ratioTerm(1, 2), ratioTerm(1, 100), 1e-9)
	assert.InDelta(t, 0.4, ratioTerm(2, 2), 1e-9)
}

func TestSeededSourceIsReproducible(t *testing.T) {
	a, b := NewRandomSource(7), NewRandomSource(7)
	m := domain.PostMetrics{LikeCount: 10, CommentCount: 4, AuthorEngagement: 3}
	for i := 0; i < 20; i++ {
		assert.Equal(t, Score(m, a), Score(m, b))
	}

	v := NewTimeSeededSource().Float64()
	assert.GreaterOrEqual(t, v, 0.0)
	assert.Less(t, v, 1.0)
}

func TestComputeAuthorEngagement(t *testing.T) {
	posts := []domain.Post{
		{ID: 1, User: domain.User{ID: "a"}, Likes: 2, Comments: 1},
		{ID: 2, User: domain.User{ID: "a"}, Likes: 4, Comments: 3},
		{ID: 3, User: domain.User{ID: "b"}},
		{ID: 4, User: domain.User{ID: "c"}, Likes: 9},
	}

	got := ComputeAuthorEngagement(posts)
	assert.Equal(t, map[string]float64{"a": 5, "b": 0, "c": 9}, got)
	assert.Empty(t, ComputeAuthorEngagement(nil))
}
