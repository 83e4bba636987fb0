package request

import "github.com/Guyuepp/artfeed/domain"

type Comment struct {
	Content  string `json:"content" binding:"required" validate:"required,max=2000"`
	ParentID int64  `json:"parent_id" validate:"gte=0"`
}

func (r *Comment) Validate() error {
	return v().Struct(r)
}

// ToDomain: Request -> Domain
func (r *Comment) ToDomain(postID int64, userID string) domain.Comment {
	return domain.Comment{
		PostID:   postID,
		UserID:   userID,
		Content:  r.Content,
		ParentID: r.ParentID,
	}
}

// CommentPage is the query of GET /posts/:id/comments
type CommentPage struct {
	Num    int64  `form:"num" validate:"omitempty,min=1,max=100"`
	Cursor string `form:"cursor" validate:"omitempty,base64"`
}

func (r *CommentPage) Validate() error {
	return v().Struct(r)
}
