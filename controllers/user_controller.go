package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aisocial/config"
	"github.com/cppla/aisocial/middleware"
	"github.com/cppla/aisocial/services"
	"github.com/cppla/aisocial/utils"
)

// UserController serves accounts, profiles and the follow graph.
type UserController struct {
	svc *services.Services
}

// NewUserController creates a UserController.
func NewUserController(svc *services.Services) *UserController {
	return &UserController{svc: svc}
}

// Register creates an account and returns a token for it.
func (u *UserController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=20"`
		Email    string `json:"email" binding:"required,email,max=255"`
		Password string `json:"password" binding:"required,min=6,max=72"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	ip := ctx.ClientIP()
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again later")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	cfg := config.Get()
	user, err := u.svc.Accounts.Register(ctx.Request.Context(), services.UserInput{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsAdmin:      cfg.IsAdmin(req.Username),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.RegistrationDailyIncrement(ip)

	token, err := utils.GenerateToken(user.ID, user.Username, time.Duration(cfg.TokenTTLHours)*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Created(ctx, gin.H{
		"token": token,
		"user":  privateUser(*user),
	})
}

// Login accepts a username or an email with the password.
func (u *UserController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	reqCtx := ctx.Request.Context()
	lookup := u.svc.Accounts.FindByUsername
	if strings.Contains(req.Username, "@") {
		lookup = u.svc.Accounts.FindByEmail
	}
	user, err := lookup(reqCtx, req.Username)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		writeServiceError(ctx, err)
		return
	}
	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if !utils.CheckPassword(hash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, time.Duration(config.Get().TokenTTLHours)*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"token": token,
		"user":  privateUser(*user),
	})
}

// Logout revokes the bearer token until it expires.
func (u *UserController) Logout(ctx *gin.Context) {
	tokenID := ctx.GetString(middleware.ContextTokenIDKey)
	if tokenID == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}
	fallback := time.Now().Add(time.Duration(config.Get().TokenTTLHours) * time.Hour)
	utils.BlacklistToken(tokenID, middleware.TokenExpiry(ctx, fallback))
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user including private fields.
func (u *UserController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	user, err := u.svc.Accounts.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.Success(ctx, privateUser(*user))
}

// GetUser returns a public profile.
func (u *UserController) GetUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	cachedSuccess(ctx, utils.CacheKey(utils.CacheUserPrefix, id), func() (any, error) {
		user, err := u.svc.Accounts.GetUser(ctx.Request.Context(), id)
		if err != nil {
			return nil, err
		}
		return publicUser(*user), nil
	})
}

// UpdateUser edits profile fields. Absent JSON fields are left unchanged.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, u.svc)
	if !ok {
		return
	}
	var req struct {
		Username       *string `json:"username" binding:"omitempty,min=3,max=20"`
		Email          *string `json:"email" binding:"omitempty,email,max=255"`
		Password       *string `json:"password" binding:"omitempty,min=6,max=72"`
		ProfilePicture *string `json:"profile_picture" binding:"omitempty,max=512"`
		CoverPicture   *string `json:"cover_picture" binding:"omitempty,max=512"`
		Bio            *string `json:"bio" binding:"omitempty,max=50"`
		CurrentCity    *string `json:"current_city" binding:"omitempty,max=20"`
		Hometown       *string `json:"hometown" binding:"omitempty,max=20"`
		IsAdmin        *bool   `json:"is_admin"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	patch := services.UserPatch{
		Username:       req.Username,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
		CoverPicture:   req.CoverPicture,
		CurrentCity:    req.CurrentCity,
		Hometown:       req.Hometown,
		IsAdmin:        req.IsAdmin,
	}
	if req.Bio != nil {
		bio := utils.SanitizeText(*req.Bio)
		patch.Bio = &bio
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
			return
		}
		patch.PasswordHash = &hash
	}

	user, err := u.svc.Accounts.UpdateUser(ctx.Request.Context(), actor, id, patch)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CacheUserPrefix, id))
	utils.Success(ctx, privateUser(*user))
}

// DeleteUser removes the account and everything that only exists through it.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, u.svc)
	if !ok {
		return
	}
	removed, err := u.svc.Cascade.DeleteUser(ctx.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	// the cascade touches followers, followees and reacted posts
	utils.InvalidateByPrefix(utils.CachePrefix)
	utils.Success(ctx, gin.H{"message": "account deleted", "removed": removed})
}

// Follow makes the authenticated user follow :id.
func (u *UserController) Follow(ctx *gin.Context) {
	u.edge(ctx, u.svc.Graph.Follow, "user followed")
}

// Unfollow removes the authenticated user's edge to :id.
func (u *UserController) Unfollow(ctx *gin.Context) {
	u.edge(ctx, u.svc.Graph.Unfollow, "user unfollowed")
}

func (u *UserController) edge(ctx *gin.Context, op func(context.Context, uint, uint) error, message string) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(ctx, u.svc)
	if !ok {
		return
	}
	if err := op(ctx.Request.Context(), actor.ID, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheDelete(utils.CacheKey(utils.CacheUserPrefix, actor.ID), utils.CacheKey(utils.CacheUserPrefix, id))
	utils.Success(ctx, gin.H{"message": message})
}

// Relation reports the follow edges between the authenticated user and :id.
func (u *UserController) Relation(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	rel, err := u.svc.Graph.Relation(ctx.Request.Context(), userID, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.Success(ctx, rel)
}

// ListPosts pages through the posts owned by :id, most recent first.
func (u *UserController) ListPosts(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	after, limit, ok := pageParams(ctx)
	if !ok {
		return
	}
	posts, err := services.Collect(u.svc.Timeline.PostsByFrom(ctx.Request.Context(), id, after), limit)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.Success(ctx, pageResponse(posts, limit))
}
