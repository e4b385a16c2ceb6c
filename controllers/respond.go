package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/middleware"
	"github.com/homefix/homefix-api/policy"
	"github.com/homefix/homefix-api/services"
	"github.com/homefix/homefix-api/utils"
	"go.uber.org/zap"
)

type errorMapping struct {
	status  int
	code    string
	message string
}

// errorMappings gives every service error kind one status, code and message
var errorMappings = map[services.Kind]errorMapping{
	services.KindValidation:        {http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data"},
	services.KindUnauthenticated:   {http.StatusUnauthorized, "UNAUTHORIZED", "Authentication failed"},
	services.KindForbidden:         {http.StatusForbidden, "FORBIDDEN", "You are not allowed to perform this action"},
	services.KindNotFound:          {http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	services.KindConflict:          {http.StatusConflict, "EMAIL_EXISTS", "An account with this email already exists"},
	services.KindInvalidTransition: {http.StatusUnprocessableEntity, "INVALID_TRANSITION", "This status change is not allowed"},
	services.KindTerminalState:     {http.StatusConflict, "TERMINAL_STATE", "The request is already closed"},
	services.KindPersistence:       {http.StatusServiceUnavailable, "PERSISTENCE_ERROR", "The service is temporarily unavailable, please retry"},
}

// respondError writes the error envelope for err
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		utils.GetLogger().Error("unexpected handler error", zap.Error(err), zap.String("request_id", middleware.GetRequestID(c)))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Something went wrong",
			},
		})
		return
	}

	mapping, ok := errorMappings[svcErr.Kind]
	if !ok {
		mapping = errorMapping{http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong"}
	}
	code, message := mapping.code, mapping.message
	if svcErr.Kind == services.KindNotFound && svcErr.Resource != "" {
		resource := strings.ToUpper(svcErr.Resource[:1]) + svcErr.Resource[1:]
		code = strings.ToUpper(svcErr.Resource) + "_NOT_FOUND"
		message = resource + " not found"
	}

	details := gin.H{}
	for k, v := range svcErr.Details {
		details[k] = v
	}
	if svcErr.Kind == services.KindPersistence {
		utils.GetLogger().Error("persistence failure", zap.Error(svcErr), zap.String("request_id", middleware.GetRequestID(c)))
		details["retryable"] = svcErr.Retryable()
	} else {
		details["cause"] = svcErr.Message
	}

	c.JSON(mapping.status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// respondBindError reports a request body that could not be parsed
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondData writes a success envelope
func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// actorFrom returns the authenticated actor, writing a 401 when there is none
func actorFrom(c *gin.Context) (policy.Actor, bool) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return policy.Actor{}, false
	}
	return actor, true
}
