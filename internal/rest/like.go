package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/rest/middleware"
	"github.com/Guyuepp/artfeed/internal/rest/response"
)

const heartbeatInterval = 15 * time.Second

type LikeHandler struct {
	Aggregator domain.LikeAggregator
	Flusher    domain.LikeFlusher
	Bloom      domain.BloomRepository

	// StreamBuffer is the per-subscriber channel size of /likes/stream
	StreamBuffer int
}

func NewLikeHandler(a domain.LikeAggregator, f domain.LikeFlusher, b domain.BloomRepository, streamBuffer int) *LikeHandler {
	return &LikeHandler{
		Aggregator:   a,
		Flusher:      f,
		Bloom:        b,
		StreamBuffer: streamBuffer,
	}
}

func (h *LikeHandler) Like(c *gin.Context) {
	h.queue(c, true)
}

func (h *LikeHandler) Unlike(c *gin.Context) {
	h.queue(c, false)
}

// queue records the intent and answers before anything reaches the database
func (h *LikeHandler) queue(c *gin.Context, liked bool) {
	postID, ok := idParam(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: "user not authenticated"})
		return
	}
	if !h.mayExist(c, postID) {
		c.JSON(http.StatusNotFound, ResponseError{Message: domain.ErrNotFound.Error()})
		return
	}

	// the aggregator needs the stored state to tell a real toggle from a no-op
	h.Aggregator.IsPostLikedByUser(c.Request.Context(), userID, postID)
	h.Aggregator.QueueLike(userID, postID, liked)
	c.JSON(http.StatusAccepted, response.LikeQueued{PostID: postID, Liked: liked})
}

func (h *LikeHandler) mayExist(c *gin.Context, postID int64) bool {
	if h.Bloom == nil {
		return true
	}
	exists, err := h.Bloom.Exists(c.Request.Context(), postID)
	if err != nil {
		logrus.Warnf("bloom filter lookup failed for post %d: %v", postID, err)
		return true
	}
	return exists
}

// State reports the caller's like state and the post's like count
func (h *LikeHandler) State(c *gin.Context) {
	postID, ok := idParam(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: "user not authenticated"})
		return
	}

	ctx := c.Request.Context()
	c.JSON(http.StatusOK, response.LikeState{
		PostID: postID,
		Liked:  h.Aggregator.IsPostLikedByUser(ctx, userID, postID),
		Likes:  h.Aggregator.GetLikeCount(ctx, postID),
	})
}

// Stream pushes PostLikeEvents as server-sent events until the client goes away.
// A departing client triggers a flush so its queued likes are written promptly.
func (h *LikeHandler) Stream(c *gin.Context) {
	events, cancel := h.Aggregator.Subscribe(h.StreamBuffer)
	defer func() {
		cancel()
		if h.Flusher != nil {
			h.Flusher.Trigger()
		}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("like", ev)
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UnixMilli())
		}
		c.Writer.Flush()
	}
}
