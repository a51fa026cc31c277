package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-bridge/internal/models"
	"chat-bridge/internal/uploads"
)

// Upload validates and stores a batch of attachment files, returning the
// attachment records to embed in the next send.
func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart form"})
		return
	}

	var files []models.FileUpload
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file " + header.Filename})
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file " + header.Filename})
			return
		}
		files = append(files, models.FileUpload{Name: header.Filename, Content: content})
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in request"})
		return
	}

	if err := uploads.Validate(files); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attachments, err := h.uploader.UploadFiles(c.Request.Context(), files)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachments": attachments})
}
