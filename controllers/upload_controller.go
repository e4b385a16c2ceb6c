package controllers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/services"
	"github.com/homefix/homefix-api/utils"
)

// UploadController serves attachments kept on local disk
type UploadController struct {
	storage *services.LocalStorage
}

// NewUploadController creates an upload controller
func NewUploadController(storage *services.LocalStorage) *UploadController {
	return &UploadController{storage: storage}
}

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves uploaded PNG images
func (ctl *UploadController) GetUploadedImage(c *gin.Context) {
	filePath, err := ctl.storage.Path(c.Param("filename"))
	if err != nil {
		var uploadErr *utils.FileUploadError
		code, message := "INVALID_FILENAME", "Invalid filename"
		if errors.As(err, &uploadErr) {
			code, message = uploadErr.Code, uploadErr.Message
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "Image not found",
			},
		})
		return
	}

	c.Header("Content-Type", utils.ImageContentType)
	c.Header("Cache-Control", "private, max-age=3600")
	c.File(filePath)
}
