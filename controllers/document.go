package controllers

import (
	"net/http"
	"strconv"

	"admissions-api/services"

	"github.com/gin-gonic/gin"
)

// DocumentController exposes uploads, the two-stage review and downloads.
type DocumentController struct {
	docs *services.DocumentService
}

func NewDocumentController(docs *services.DocumentService) *DocumentController {
	return &DocumentController{docs: docs}
}

// UploadDocument stores an encrypted document against an application.
func (ctrl *DocumentController) UploadDocument(c *gin.Context) {
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file is required"})
		return
	}
	content, filename, err := readUpload(file)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := ctrl.docs.Upload(currentActor(c), services.UploadDocumentInput{
		ApplicationID: appID,
		DocType:       c.PostForm("doc_type"),
		Filename:      filename,
		Content:       content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Document uploaded successfully",
		"document": doc,
	})
}

// ListDocuments returns the upload history of an application.
func (ctrl *DocumentController) ListDocuments(c *gin.Context) {
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	docs, err := ctrl.docs.ListForApplication(currentActor(c), appID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetDocumentStatus returns the per-type gating view of an application.
func (ctrl *DocumentController) GetDocumentStatus(c *gin.Context) {
	appID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	statuses, err := ctrl.docs.StatusIndex(currentActor(c), appID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document_status": statuses})
}

// ReviewDocument records a stage outcome; the stage follows the reviewer role.
func (ctrl *DocumentController) ReviewDocument(c *gin.Context) {
	type reviewRequest struct {
		Outcome string `json:"outcome" binding:"required"`
		Notes   string `json:"notes"`
	}

	docID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.docs.Review(currentActor(c), services.ReviewDocumentInput{
		DocumentID: docID,
		Outcome:    req.Outcome,
		Notes:      req.Notes,
	}); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document review recorded"})
}

// DownloadDocument streams the decrypted document.
func (ctrl *DocumentController) DownloadDocument(c *gin.Context) {
	docID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	filename, content, err := ctrl.docs.Download(currentActor(c), docID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", content)
}

// DeleteDocument removes an upload from the history.
func (ctrl *DocumentController) DeleteDocument(c *gin.Context) {
	docID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	if err := ctrl.docs.Delete(currentActor(c), docID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
