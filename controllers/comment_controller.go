package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aisocial/services"
	"github.com/cppla/aisocial/utils"
)

type toggleFunc func(ctx context.Context, targetID, actorID uint) (services.ReactionResult, error)

type commentRequest struct {
	Content string `json:"content" binding:"required,max=50"`
}

// CommentController serves comments and replies.
type CommentController struct {
	svc *services.Services
}

// NewCommentController creates a CommentController.
func NewCommentController(svc *services.Services) *CommentController {
	return &CommentController{svc: svc}
}

func (c *CommentController) GetComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	comment, err := c.svc.Content.GetComment(ctx.Request.Context(), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// EditComment replaces the comment text. Author or admin only.
func (c *CommentController) EditComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, c.svc)
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}
	comment, err := c.svc.Content.EditComment(ctx.Request.Context(), actor, id, utils.SanitizeText(req.Content))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// DeleteComment removes the comment and its replies.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, c.svc)
	if !ok {
		return
	}
	comment, err := c.svc.Content.GetComment(ctx.Request.Context(), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	removed, err := c.svc.Cascade.DeleteComment(ctx.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CachePostPrefix, comment.ForPost))
	utils.Success(ctx, gin.H{"message": "comment deleted", "removed": removed})
}

// Like toggles the authenticated user's like on the comment.
func (c *CommentController) Like(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, c.svc)
	if !ok {
		return
	}
	res, err := c.svc.Reactions.ToggleCommentLike(ctx.Request.Context(), id, actor.ID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	respondToggle(ctx, res, "comment liked", "comment like removed")
}

// Reply answers the comment.
func (c *CommentController) Reply(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, c.svc)
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}
	reply, err := c.svc.Content.Reply(ctx.Request.Context(), actor, id, utils.SanitizeText(req.Content))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.Created(ctx, reply)
}

func respondToggle(ctx *gin.Context, res services.ReactionResult, added, removed string) {
	message := removed
	if res.Added {
		message = added
	}
	utils.Success(ctx, gin.H{"message": message, "result": res})
}
