package request

import "github.com/Guyuepp/artfeed/domain"

// Feed is the query of GET /posts
type Feed struct {
	Category string `form:"category" validate:"omitempty,max=64"`
	Sort     string `form:"sort" validate:"omitempty,oneof=recent random most_liked recommended"`
	Num      int64  `form:"num" validate:"omitempty,min=1,max=100"`
	Cursor   string `form:"cursor" validate:"omitempty,base64"`
}

func (r *Feed) Validate() error {
	return v().Struct(r)
}

func (r *Feed) SortMode() (domain.SortMode, error) {
	return domain.ParseSortMode(r.Sort)
}
