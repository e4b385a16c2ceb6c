package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/services"
)

// AssignTechnicianRequest represents the request body for assigning a technician
type AssignTechnicianRequest struct {
	TechnicianID string `json:"technicianId" binding:"required"`
}

// AdminController exposes marketplace management endpoints
type AdminController struct {
	requests *services.RequestService
	users    *services.UserService
}

// NewAdminController creates an admin controller
func NewAdminController(requests *services.RequestService, users *services.UserService) *AdminController {
	return &AdminController{requests: requests, users: users}
}

// DeleteRequest handles DELETE /api/v1/admin/requests/:id
func (ctl *AdminController) DeleteRequest(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := ctl.requests.DeleteRequest(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Request deleted",
	})
}

// AssignTechnician handles PUT /api/v1/admin/requests/:id/technician
func (ctl *AdminController) AssignTechnician(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var body AssignTechnicianRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	req, err := ctl.requests.AssignTechnician(c.Request.Context(), actor, c.Param("id"), body.TechnicianID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, req)
}

// ListUsers handles GET /api/v1/admin/users?role=
func (ctl *AdminController) ListUsers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	role := models.Role(c.Query("role"))
	if parsed, ok := models.ParseRole(c.Query("role")); ok {
		role = parsed
	}

	users, err := ctl.users.ListUsers(c.Request.Context(), actor, role)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, users)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (ctl *AdminController) DeleteUser(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := ctl.users.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}

// Stats handles GET /api/v1/admin/stats - account and request counts
func (ctl *AdminController) Stats(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	stats, err := ctl.requests.Stats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, stats)
}
