package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository"
	"github.com/Guyuepp/artfeed/internal/rest/middleware"
	"github.com/Guyuepp/artfeed/internal/rest/request"
	"github.com/Guyuepp/artfeed/internal/rest/response"
)

type FeedHandler struct {
	Service domain.FeedUsecase
}

func NewFeedHandler(svc domain.FeedUsecase) *FeedHandler {
	return &FeedHandler{
		Service: svc,
	}
}

// Fetch serves one ranked page of posts
func (h *FeedHandler) Fetch(c *gin.Context) {
	var req request.Feed
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	mode, err := req.SortMode()
	if err != nil {
		abortWithError(c, err)
		return
	}
	repository.PageVerify(&req.Num)

	posts, nextCursor, err := h.Service.Fetch(c.Request.Context(), req.Category, req.Cursor, req.Num, mode)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header(middleware.HeaderCursor, nextCursor)
	c.JSON(http.StatusOK, response.NewFeed(posts, nextCursor))
}
