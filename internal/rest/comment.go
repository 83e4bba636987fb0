package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/rest/middleware"
	"github.com/Guyuepp/artfeed/internal/rest/request"
	"github.com/Guyuepp/artfeed/internal/rest/response"
)

type commentHandler struct {
	Service domain.CommentUsecase
}

func NewCommentHandler(svc domain.CommentUsecase) *commentHandler {
	return &commentHandler{
		Service: svc,
	}
}

func (h *commentHandler) CreateComment(c *gin.Context) {
	var req request.Comment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: "user not authenticated"})
		return
	}
	postID, ok := idParam(c)
	if !ok {
		return
	}

	comment := req.ToDomain(postID, userID)
	if err := h.Service.Create(c.Request.Context(), &comment); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.NewCommentFromDomain(&comment))
}

func (h *commentHandler) DeleteComment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: "user not authenticated"})
		return
	}

	if err := h.Service.Delete(c.Request.Context(), id, userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *commentHandler) FetchCommentsByPost(c *gin.Context) {
	postID, ok := idParam(c)
	if !ok {
		return
	}
	var req request.CommentPage
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	comments, nextCursor, err := h.Service.FetchByPost(c.Request.Context(), postID, req.Cursor, req.Num)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header(middleware.HeaderCursor, nextCursor)
	c.JSON(http.StatusOK, gin.H{"comments": response.NewCommentsFromDomain(comments)})
}
