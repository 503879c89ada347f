package controllers

import (
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"admissions-api/services"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps document and offer letter uploads at 16 MB.
const maxUploadBytes = 16 << 20

// readUpload reads a multipart file fully into memory and returns its content
// with the client's base filename.
func readUpload(header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > maxUploadBytes {
		return nil, "", services.ErrValidation("file exceeds the %d MB upload limit", maxUploadBytes>>20)
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", services.Internal("failed to open upload", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, "", services.Internal("failed to read upload", err)
	}
	if len(content) > maxUploadBytes {
		return nil, "", services.ErrValidation("file exceeds the %d MB upload limit", maxUploadBytes>>20)
	}
	return content, filepath.Base(header.Filename), nil
}

// currentActor builds the service-layer identity from the authenticated
// request context.
func currentActor(c *gin.Context) services.Actor {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")
	ua := c.GetHeader("User-Agent")
	return services.Actor{
		UserID:    userID.(int),
		RoleID:    roleID.(int),
		IPAddress: c.ClientIP(),
		UserAgent: ua,
	}
}

// respondError maps a service error onto the HTTP surface. Every controller
// funnels service failures through here so kinds and status codes cannot
// drift between endpoints.
func respondError(c *gin.Context, err error) {
	svcErr, ok := err.(*services.Error)
	if !ok {
		log.Printf("unexpected error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch svcErr.Kind {
	case services.KindUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": svcErr.Message})
	case services.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": svcErr.Message})
	case services.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": svcErr.Message})
	case services.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": svcErr.Message})
	case services.KindPrecondition:
		body := gin.H{"error": svcErr.Message}
		if len(svcErr.Items) > 0 {
			body["items"] = svcErr.Items
		}
		c.JSON(http.StatusBadRequest, body)
	case services.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": svcErr.Message})
	default:
		// Crypto and internal failures: log the cause, hide it from the client.
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, svcErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
