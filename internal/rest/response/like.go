package response

type LikeState struct {
	PostID int64 `json:"post_id"`
	Liked  bool  `json:"liked"`
	Likes  int64 `json:"likes"`
}

type LikeQueued struct {
	PostID int64 `json:"post_id"`
	Liked  bool  `json:"liked"`
}
