package response

import "github.com/Guyuepp/artfeed/domain"

type Comment struct {
	ID        int64  `json:"id"`
	PostID    int64  `json:"post_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	ParentID  int64  `json:"parent_id"`
	RootID    int64  `json:"root_id"`
	CreatedAt string `json:"created_at"`

	User    *User      `json:"user,omitempty"`
	Replies []*Comment `json:"replies,omitempty"`
}

func newSingleCommentFromDomain(c *domain.Comment) *Comment {
	if c == nil {
		return nil
	}
	return &Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Content:   c.Content,
		ParentID:  c.ParentID,
		RootID:    c.RootID,
		CreatedAt: c.CreatedAt.Format(DateTimeFormat),
		User:      NewUserFromDomain(c.User),
		Replies:   nil,
	}
}

// NewCommentFromDomain: Domain -> Response
func NewCommentFromDomain(c *domain.Comment) *Comment {
	if c == nil {
		return nil
	}
	root := newSingleCommentFromDomain(c)
	if c.Replies != nil {
		root.Replies = make([]*Comment, 0, len(c.Replies))
		for _, r := range c.Replies {
			root.Replies = append(root.Replies, newSingleCommentFromDomain(r))
		}
	}
	return root
}

func NewCommentsFromDomain(cs []*domain.Comment) []*Comment {
	res := make([]*Comment, 0, len(cs))
	for _, c := range cs {
		res = append(res, NewCommentFromDomain(c))
	}
	return res
}
