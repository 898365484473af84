package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/classrecord/classrecord-api/internal/models"
	"github.com/classrecord/classrecord-api/internal/service"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
	"github.com/classrecord/classrecord-api/pkg/response"
)

// RosterHandler exposes enrollment and scoring endpoints.
type RosterHandler struct {
	roster *service.RosterService
}

// NewRosterHandler creates a new handler.
func NewRosterHandler(roster *service.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// List godoc
// @Summary List roster
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *RosterHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	students, err := h.roster.List(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Enlist godoc
// @Summary Enroll students
// @Description Batch enrollment; duplicates are skipped and reported, new LRNs get login accounts
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.EnlistRequest true "Students"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/students [post]
func (h *RosterHandler) Enlist(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// A single student object is accepted as a one-item batch.
	var req models.EnlistRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil || len(req.Students) == 0 {
		var single models.EnlistItem
		if err2 := c.ShouldBindBodyWith(&single, binding.JSON); err2 != nil || single.LRN == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enlist payload"))
			return
		}
		req = models.EnlistRequest{Students: []models.EnlistItem{single}}
	}

	result, err := h.roster.Enlist(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// PutScore godoc
// @Summary Set score
// @Description Write one score cell and refresh the final grade
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.PutScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students/score [put]
func (h *RosterHandler) PutScore(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.PutScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	student, err := h.roster.PutScore(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Remove godoc
// @Summary Remove enrollment
// @Description Drop a student from the class and clear their attendance records for it
// @Tags Roster
// @Param id path string true "Class ID"
// @Param lrn path string true "Student LRN"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students/{lrn} [delete]
func (h *RosterHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.roster.Remove(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject, c.Param("lrn")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Recalculate godoc
// @Summary Recalculate finals
// @Description Recompute the final grade for every enrollment in the class
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/recalculate [post]
func (h *RosterHandler) Recalculate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	updated, err := h.roster.Recalculate(c.Request.Context(), c.Param("id"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": updated})
}

// EnrollmentsByLRN godoc
// @Summary Enrollments for one student
// @Description Student-facing view of classes, scores and final grades
// @Tags Roster
// @Produce json
// @Param lrn path string true "Student LRN"
// @Success 200 {object} response.Envelope
// @Router /enrollments/by-lrn/{lrn} [get]
func (h *RosterHandler) EnrollmentsByLRN(c *gin.Context) {
	views, err := h.roster.EnrollmentsByLRN(c.Request.Context(), c.Param("lrn"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views)
}
