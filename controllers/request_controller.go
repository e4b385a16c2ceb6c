package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/services"
)

const (
	preferredDateLayout = "2006-01-02"
	preferredTimeLayout = "15:04"
)

// CreateRequestBody is accepted as JSON or as multipart form fields with an optional PNG image
type CreateRequestBody struct {
	ServiceType   string                `json:"serviceType" form:"serviceType"`
	Description   string                `json:"description" form:"description"`
	Location      string                `json:"location" form:"location"`
	TechnicianID  string                `json:"technicianId" form:"technicianId"`
	ScheduledDate string                `json:"scheduledDate" form:"scheduledDate"`
	PreferredDate string                `json:"preferredDate" form:"preferredDate"`
	PreferredTime string                `json:"preferredTime" form:"preferredTime"`
	Image         *multipart.FileHeader `json:"-" form:"image"`
}

// schedule resolves scheduledDate (RFC3339) or preferredDate plus optional preferredTime
func (b CreateRequestBody) schedule() (*time.Time, error) {
	if b.ScheduledDate != "" {
		t, err := time.Parse(time.RFC3339, b.ScheduledDate)
		if err != nil {
			return nil, errors.New("scheduledDate must be an RFC3339 timestamp")
		}
		return &t, nil
	}
	if b.PreferredDate == "" {
		return nil, nil
	}

	value, layout := b.PreferredDate, preferredDateLayout
	if b.PreferredTime != "" {
		value += " " + b.PreferredTime
		layout += " " + preferredTimeLayout
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil, errors.New("preferredDate must be YYYY-MM-DD and preferredTime HH:MM")
	}
	return &t, nil
}

// UpdateStatusRequest represents the request body for changing a request's status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// RequestController handles service requests and their message threads
type RequestController struct {
	requests *services.RequestService
}

// NewRequestController creates a request controller
func NewRequestController(requests *services.RequestService) *RequestController {
	return &RequestController{requests: requests}
}

// CreateRequest handles POST /api/v1/requests - a client books a service
func (ctl *RequestController) CreateRequest(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var body CreateRequestBody
	if err := c.ShouldBind(&body); err != nil {
		respondBindError(c, err)
		return
	}

	scheduled, err := body.schedule()
	if err != nil {
		respondBindError(c, err)
		return
	}

	req, err := ctl.requests.CreateRequest(c.Request.Context(), actor, services.CreateRequestInput{
		ServiceType:   body.ServiceType,
		Description:   body.Description,
		Location:      body.Location,
		TechnicianID:  body.TechnicianID,
		ScheduledDate: scheduled,
		Image:         body.Image,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, req)
}

// ListRequests handles GET /api/v1/requests?status= - the requests visible to the caller
func (ctl *RequestController) ListRequests(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	requests, err := ctl.requests.ListForActor(c.Request.Context(), actor, services.ListOptions{
		Status: models.ParseStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, requests)
}

// GetRequest handles GET /api/v1/requests/:id
func (ctl *RequestController) GetRequest(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	req, err := ctl.requests.GetRequest(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, req)
}

// UpdateStatus handles PATCH /api/v1/requests/:id - moves the request through its lifecycle
func (ctl *RequestController) UpdateStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	req, err := ctl.requests.TransitionStatus(c.Request.Context(), actor, c.Param("id"), models.ParseStatus(body.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, req)
}

// SendMessage handles POST /api/v1/requests/:id/messages
func (ctl *RequestController) SendMessage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var body SendMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	msg, err := ctl.requests.PostMessage(c.Request.Context(), actor, c.Param("id"), body.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, msg)
}

// ListMessages handles GET /api/v1/requests/:id/messages - oldest first
func (ctl *RequestController) ListMessages(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	messages, err := ctl.requests.ListMessages(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, messages)
}
