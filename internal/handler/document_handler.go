package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/nvalmar/luma/internal/model"
	"github.com/nvalmar/luma/internal/pkg/errcode"
	"github.com/nvalmar/luma/internal/pkg/response"
	"github.com/nvalmar/luma/internal/service"
)

const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	docs *service.DocumentService
}

func NewDocumentHandler(docs *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if fh.Size > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "unable to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "unable to read file")
		return
	}
	if len(data) == 0 {
		response.Error(c, errcode.ErrInvalidFile, "file is empty")
		return
	}
	doc, err := h.docs.Upload(c.Request.Context(), getUserID(c), fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	status := c.Query("status")
	limit := parseUintQuery(c, "limit", 50)
	offset := parseUintQuery(c, "offset", 0)
	docs, err := h.docs.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) ProcessingLogs(c *gin.Context) {
	logs, err := h.docs.ProcessingLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, logs)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *DocumentHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "status is required")
		return
	}
	if req.Status != model.DocumentStatusActive && req.Status != model.DocumentStatusInactive {
		response.Error(c, errcode.ErrInvalid, "status must be active or inactive")
		return
	}
	if err := h.docs.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	doc, err := h.docs.Reprocess(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}
