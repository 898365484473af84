package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classrecord/classrecord-api/internal/models"
	"github.com/classrecord/classrecord-api/internal/service"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
	"github.com/classrecord/classrecord-api/pkg/response"
)

// AdminHandler exposes the account lifecycle endpoints.
type AdminHandler struct {
	accounts *service.AccountService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(accounts *service.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

// CreateTeacher godoc
// @Summary Create teacher account
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/teachers [post]
func (h *AdminHandler) CreateTeacher(c *gin.Context) {
	var req models.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	account, err := h.accounts.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// ListTeachers godoc
// @Summary List teacher accounts
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	accounts, err := h.accounts.ListTeachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts)
}

// ResetTeacherPassword godoc
// @Summary Reset teacher password
// @Description Restore the well-known default password
// @Tags Admin
// @Param username path string true "Teacher username"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{username}/reset-password [patch]
func (h *AdminHandler) ResetTeacherPassword(c *gin.Context) {
	if err := h.accounts.ResetTeacherPassword(c.Request.Context(), c.Param("username")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DisableTeacher godoc
// @Summary Disable teacher account
// @Tags Admin
// @Param username path string true "Teacher username"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{username}/disable [patch]
func (h *AdminHandler) DisableTeacher(c *gin.Context) {
	if err := h.accounts.SetTeacherDisabled(c.Request.Context(), c.Param("username"), true); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EnableTeacher godoc
// @Summary Enable teacher account
// @Tags Admin
// @Param username path string true "Teacher username"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{username}/enable [patch]
func (h *AdminHandler) EnableTeacher(c *gin.Context) {
	if err := h.accounts.SetTeacherDisabled(c.Request.Context(), c.Param("username"), false); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListStudents godoc
// @Summary List student accounts
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	accounts, err := h.accounts.ListStudents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts)
}

// ResetStudentPassword godoc
// @Summary Reset student password
// @Description Restore the well-known default and force a change on next login
// @Tags Admin
// @Param lrn path string true "Student LRN"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{lrn}/reset-password [patch]
func (h *AdminHandler) ResetStudentPassword(c *gin.Context) {
	if err := h.accounts.ResetStudentPassword(c.Request.Context(), c.Param("lrn")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DisableStudent godoc
// @Summary Disable student account
// @Tags Admin
// @Param lrn path string true "Student LRN"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{lrn}/disable [patch]
func (h *AdminHandler) DisableStudent(c *gin.Context) {
	if err := h.accounts.SetStudentDisabled(c.Request.Context(), c.Param("lrn"), true); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EnableStudent godoc
// @Summary Enable student account
// @Tags Admin
// @Param lrn path string true "Student LRN"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{lrn}/enable [patch]
func (h *AdminHandler) EnableStudent(c *gin.Context) {
	if err := h.accounts.SetStudentDisabled(c.Request.Context(), c.Param("lrn"), false); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteStudent godoc
// @Summary Delete student account
// @Description Remove the login together with every enrollment and attendance record
// @Tags Admin
// @Param lrn path string true "Student LRN"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{lrn} [delete]
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	if err := h.accounts.DeleteStudent(c.Request.Context(), c.Param("lrn")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
