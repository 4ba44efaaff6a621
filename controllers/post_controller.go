package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aisocial/services"
	"github.com/cppla/aisocial/utils"
)

// PostController serves posts, the timeline and post reactions.
type PostController struct {
	svc *services.Services
}

// NewPostController creates a PostController.
func NewPostController(svc *services.Services) *PostController {
	return &PostController{svc: svc}
}

// CreatePost publishes a post owned by the authenticated user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	actor, ok := currentActor(ctx, p.svc)
	if !ok {
		return
	}
	var req struct {
		Caption  string   `json:"caption" binding:"max=50"`
		Pictures []string `json:"pictures" binding:"max=10,dive,max=512"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	post, err := p.svc.Content.CreatePost(ctx.Request.Context(), actor, services.PostInput{
		Caption:  utils.Sanitize(req.Caption),
		Pictures: req.Pictures,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CacheUserPrefix, actor.ID))
	utils.Created(ctx, post)
}

// Timeline pages through the authenticated user's feed.
func (p *PostController) Timeline(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	after, limit, ok := pageParams(ctx)
	if !ok {
		return
	}
	posts, err := services.Collect(p.svc.Timeline.TimelineFrom(ctx.Request.Context(), userID, after), limit)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.Success(ctx, pageResponse(posts, limit))
}

// GetPost returns one post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	cachedSuccess(ctx, utils.CacheKey(utils.CachePostPrefix, id), func() (any, error) {
		return p.svc.Content.GetPost(ctx.Request.Context(), id)
	})
}

// UpdatePost edits caption and/or pictures.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, p.svc)
	if !ok {
		return
	}
	var req struct {
		Caption  *string   `json:"caption" binding:"omitempty,max=50"`
		Pictures *[]string `json:"pictures" binding:"omitempty,max=10,dive,max=512"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}
	patch := services.PostPatch{Pictures: req.Pictures}
	if req.Caption != nil {
		caption := utils.Sanitize(*req.Caption)
		patch.Caption = &caption
	}

	post, err := p.svc.Content.UpdatePost(ctx.Request.Context(), actor, id, patch)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CachePostPrefix, id))
	utils.Success(ctx, post)
}

// DeletePost removes the post with its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, p.svc)
	if !ok {
		return
	}
	post, err := p.svc.Content.GetPost(ctx.Request.Context(), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	removed, err := p.svc.Cascade.DeletePost(ctx.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CachePostPrefix, id), utils.CacheKey(utils.CacheUserPrefix, post.UserID))
	utils.Success(ctx, gin.H{"message": "post deleted", "removed": removed})
}

// Like toggles the authenticated user's like.
func (p *PostController) Like(ctx *gin.Context) {
	p.react(ctx, p.svc.Reactions.ToggleLike, "post liked", "post like removed")
}

// Unlike toggles the authenticated user's unlike.
func (p *PostController) Unlike(ctx *gin.Context) {
	p.react(ctx, p.svc.Reactions.ToggleUnlike, "post unliked", "post unlike removed")
}

func (p *PostController) react(ctx *gin.Context, toggle toggleFunc, added, removed string) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, p.svc)
	if !ok {
		return
	}
	res, err := toggle(ctx.Request.Context(), id, actor.ID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CachePostPrefix, id))
	respondToggle(ctx, res, added, removed)
}

// CreateComment adds a top-level comment to the post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, p.svc)
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	comment, err := p.svc.Content.CreateComment(ctx.Request.Context(), actor, id, utils.SanitizeText(req.Content))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CachePostPrefix, id))
	utils.Created(ctx, comment)
}
