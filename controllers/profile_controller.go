package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/services"
)

// ProfileController serves the signed-in user's own profile
type ProfileController struct {
	users *services.UserService
}

// NewProfileController creates a profile controller
func NewProfileController(users *services.UserService) *ProfileController {
	return &ProfileController{users: users}
}

// GetProfile handles GET /api/v1/profile
func (ctl *ProfileController) GetProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	profile, err := ctl.users.GetProfile(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/profile - only the fields present are changed
func (ctl *ProfileController) UpdateProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var update services.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := ctl.users.UpdateProfile(c.Request.Context(), actor, update)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, profile)
}
