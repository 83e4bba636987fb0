package response

import "github.com/Guyuepp/artfeed/domain"

type Post struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	ImageURL  string  `json:"image_url"`
	Author    *User   `json:"author"`
	CreatedAt string  `json:"created_at"`
	Likes     int64   `json:"likes"`
	Comments  int64   `json:"comments"`
	Score     float64 `json:"score,omitempty"`
}

// NewPostFromDomain: Domain -> Response
func NewPostFromDomain(p *domain.ScoredPost) Post {
	return Post{
		ID:        p.Post.ID,
		Title:     p.Post.Title,
		Category:  p.Post.Category,
		ImageURL:  p.Post.ImageURL,
		Author:    NewUserFromDomain(&p.Post.User),
		CreatedAt: p.Post.CreatedAt.Format(DateTimeFormat),
		Likes:     p.Metrics.LikeCount,
		Comments:  p.Metrics.CommentCount,
		Score:     p.Score,
	}
}

type Feed struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"next_cursor"`
}

func NewFeed(posts []domain.ScoredPost, cursor string) Feed {
	res := Feed{Posts: make([]Post, len(posts)), NextCursor: cursor}
	for i := range posts {
		res.Posts[i] = NewPostFromDomain(&posts[i])
	}
	return res
}
