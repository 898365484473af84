package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classrecord/classrecord-api/internal/models"
	"github.com/classrecord/classrecord-api/internal/service"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
	"github.com/classrecord/classrecord-api/pkg/response"
)

// ClassHandler exposes class and lesson management endpoints.
type ClassHandler struct {
	classes *service.ClassService
	exports *service.ExportService
}

// NewClassHandler creates a new handler.
func NewClassHandler(classes *service.ClassService, exports *service.ExportService) *ClassHandler {
	return &ClassHandler{classes: classes, exports: exports}
}

// List godoc
// @Summary List classes
// @Description Admins see every class, teachers their own
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classes, err := h.classes.List(c.Request.Context(), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body models.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}

	class, err := h.classes.Create(c.Request.Context(), claims.Subject, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	class, err := h.classes.Get(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class)
}

// Update godoc
// @Summary Update class
// @Description Rename a class, replace its lessons or rewrite its weights
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.UpdateClassRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	class, err := h.classes.Update(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class)
}

// Delete godoc
// @Summary Delete class
// @Description Remove a class, its roster and its attendance days
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.classes.Delete(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddLesson godoc
// @Summary Add lesson
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.AddLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/lessons [post]
func (h *ClassHandler) AddLesson(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AddLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}

	lesson, err := h.classes.AddLesson(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// RemoveLesson godoc
// @Summary Remove lesson
// @Description Drop a lesson by key; stored scores for the key stop counting
// @Tags Classes
// @Param id path string true "Class ID"
// @Param key path string true "Lesson key"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/lessons/{key} [delete]
func (h *ClassHandler) RemoveLesson(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.classes.RemoveLesson(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject, c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Weights godoc
// @Summary Resolved weights
// @Description Canonical WW/PT/QE weight triple for the class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/weights [get]
func (h *ClassHandler) Weights(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	weights, err := h.classes.ResolvedWeights(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weights)
}

// Export godoc
// @Summary Export grade sheet
// @Description Grade sheet for the class as csv, pdf or xlsx
// @Tags Classes
// @Produce octet-stream
// @Param id path string true "Class ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/export [get]
func (h *ClassHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exports.GradeSheet(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
