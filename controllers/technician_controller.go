package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/ranking"
	"github.com/homefix/homefix-api/services"
)

// TechnicianController serves the technician directory
type TechnicianController struct {
	technicians *services.TechnicianService
}

// NewTechnicianController creates a technician controller
func NewTechnicianController(technicians *services.TechnicianService) *TechnicianController {
	return &TechnicianController{technicians: technicians}
}

func criteriaFromQuery(c *gin.Context) ranking.Criteria {
	return ranking.Criteria{
		ServiceType:   c.Query("serviceType"),
		Location:      c.Query("location"),
		AvailableOnly: c.Query("available") == "true",
	}
}

// ListTechnicians handles GET /api/v1/technicians?serviceType=&location=&available=
func (ctl *TechnicianController) ListTechnicians(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	techs, err := ctl.technicians.List(c.Request.Context(), actor, criteriaFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, techs)
}

// Recommendations handles GET /api/v1/technicians/recommendations - the best scored matches
func (ctl *TechnicianController) Recommendations(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid request data",
					"details": "limit must be a positive integer",
				},
			})
			return
		}
		limit = n
	}

	scored, err := ctl.technicians.Recommend(c.Request.Context(), actor, criteriaFromQuery(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, scored)
}

// GetTechnician handles GET /api/v1/technicians/:id
func (ctl *TechnicianController) GetTechnician(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	tech, err := ctl.technicians.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, tech)
}

// DeleteTechnician handles DELETE /api/v1/technicians/:id - removes a listing (admin only)
func (ctl *TechnicianController) DeleteTechnician(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := ctl.technicians.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Technician deleted",
	})
}
