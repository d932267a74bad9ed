package handlers

import (
	"strconv"

	"telechat/internal/middleware"
	"telechat/internal/models"
	"telechat/internal/services"
	"telechat/internal/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler handles user lookup, search, profile and presence routes
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Search finds users by substring over username, email and phone
func (h *UserHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.ErrorResponse(c, 400, "Query parameter 'q' is required")
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	users, err := h.userService.Search(c.Request.Context(), middleware.GetUserID(c), query, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}

	utils.SuccessResponseWithMeta(c, public, &utils.Meta{
		Limit: int(limit),
		Total: len(public),
	})
}

// GetByID returns another user's public profile
func (h *UserHandler) GetByID(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user.Public())
}

// UpdateProfileRequest is the profile update payload
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
	Bio       string `json:"bio" validate:"max=500"`
	Avatar    string `json:"avatar" validate:"max=500"`
}

// UpdateProfile overwrites the caller's profile fields
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c),
		req.FirstName, req.LastName, req.Bio, req.Avatar)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// UpdateStatusRequest is the presence status payload
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,presence_status"`
}

// UpdateStatus overwrites the caller's coarse presence status
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	user, err := h.userService.UpdateStatus(c.Request.Context(), middleware.GetUserID(c), req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// UpdatePreferencesRequest is the preference bag payload
type UpdatePreferencesRequest struct {
	Theme         string `json:"theme" validate:"required"`
	Language      string `json:"language" validate:"required"`
	Notifications bool   `json:"notifications"`
}

// UpdatePreferences overwrites the caller's preference bag
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, 400, "Invalid request body")
		return
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, utils.ValidationErrorsToMap(errs))
		return
	}

	user, err := h.userService.UpdatePreferences(c.Request.Context(), middleware.GetUserID(c), models.Preferences{
		Theme:         req.Theme,
		Language:      req.Language,
		Notifications: req.Notifications,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// OnlineList returns users currently flagged online
func (h *UserHandler) OnlineList(c *gin.Context) {
	users, err := h.userService.OnlineUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}

	utils.SuccessResponse(c, public)
}
