package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aisocial/config"
	"github.com/cppla/aisocial/middleware"
	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/services"
	"github.com/cppla/aisocial/store"
	"github.com/cppla/aisocial/utils"
)

const maxPageSize = 100

// writeServiceError maps a core error onto the response envelope.
func writeServiceError(ctx *gin.Context, err error) {
	var cf *services.CascadeFailure
	switch {
	case errors.As(err, &cf):
		utils.Sugar.Errorf("cascade failed entity=%s id=%d step=%q err=%v", cf.Entity, cf.ID, cf.Step, cf.Err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "deletion could not complete")
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, "resource not found")
	case errors.Is(err, services.ErrSelfReference):
		utils.Error(ctx, http.StatusBadRequest, 40010, "you cannot do this to yourself")
	case errors.Is(err, services.ErrEmptyContent):
		utils.Error(ctx, http.StatusBadRequest, 40011, "content cannot be empty")
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only modify your own content")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, "username or email already exists")
	case errors.Is(err, services.ErrAlreadyRelated):
		utils.Error(ctx, http.StatusConflict, 40902, "you already follow this user")
	case errors.Is(err, services.ErrNotRelated):
		utils.Error(ctx, http.StatusConflict, 40903, "you do not follow this user")
	case errors.Is(err, services.ErrStoreUnavailable):
		utils.Sugar.Errorf("store unavailable: %v", err)
		utils.Error(ctx, http.StatusServiceUnavailable, 50300, "service temporarily unavailable")
	default:
		utils.Sugar.Errorf("unexpected error path=%s err=%v", ctx.Request.URL.Path, err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// parseID reads a positive numeric path parameter, answering 400 when it is malformed.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	v, ok := value.(uint)
	return v, ok && v != 0
}

// currentActor resolves the authenticated user into a services.Actor. Admin rights come
// from the stored flag or the configured admin usernames.
func currentActor(ctx *gin.Context, svc *services.Services) (services.Actor, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return services.Actor{}, false
	}
	user, err := svc.Accounts.GetUser(ctx.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusUnauthorized, 40109, "account no longer exists")
		return services.Actor{}, false
	}
	if err != nil {
		writeServiceError(ctx, err)
		return services.Actor{}, false
	}
	return services.Actor{ID: user.ID, IsAdmin: user.IsAdmin || config.Get().IsAdmin(user.Username)}, true
}

// pageParams reads ?cursor= and ?limit= for keyset listings.
func pageParams(ctx *gin.Context) (*store.Cursor, int, bool) {
	limit := config.Get().TimelinePageSize
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40051, "invalid limit")
			return nil, 0, false
		}
		limit = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	raw := strings.TrimSpace(ctx.Query("cursor"))
	if raw == "" {
		return nil, limit, true
	}
	cur, err := store.ParseCursor(raw)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid cursor")
		return nil, 0, false
	}
	return &cur, limit, true
}

// pageResponse wraps a listing; next_cursor is set when the page is full.
func pageResponse(posts []models.Post, limit int) gin.H {
	resp := gin.H{"items": posts}
	if len(posts) == limit && limit > 0 {
		resp["next_cursor"] = store.CursorOf(posts[len(posts)-1]).String()
	}
	return resp
}

func publicUser(user models.User) gin.H {
	return gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"profile_picture": user.ProfilePicture,
		"cover_picture":   user.CoverPicture,
		"bio":             user.Bio,
		"current_city":    user.CurrentCity,
		"hometown":        user.Hometown,
		"followers":       user.Followers,
		"following":       user.Following,
		"posts":           user.Posts,
		"created_at":      user.CreatedAt,
	}
}

func privateUser(user models.User) gin.H {
	h := publicUser(user)
	h["email"] = user.Email
	h["is_admin"] = user.IsAdmin || config.Get().IsAdmin(user.Username)
	return h
}

// cachedSuccess answers from the Redis copy of key when present, otherwise loads,
// answers and stores the envelope.
func cachedSuccess(ctx *gin.Context, key string, load func() (any, error)) {
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}
	payload, err := load()
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	utils.Success(ctx, payload)
}
