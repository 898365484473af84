package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classrecord/classrecord-api/internal/models"
	"github.com/classrecord/classrecord-api/internal/service"
	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
	"github.com/classrecord/classrecord-api/pkg/response"
)

// AttendanceHandler exposes attendance marking and issue views.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	exports    *service.ExportService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService, exports *service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// Day godoc
// @Summary Attendance day
// @Description Stored exception records for one class date; empty means everyone present
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param dateKey path string true "Date key (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/{classId}/{dateKey} [get]
func (h *AttendanceHandler) Day(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	records, err := h.attendance.Day(c.Request.Context(), c.Param("classId"), c.Param("dateKey"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Mark godoc
// @Summary Mark attendance
// @Description PRESENT clears the stored record, TARDY and ABSENT upsert it
// @Tags Attendance
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param dateKey path string true "Date key (YYYY-MM-DD)"
// @Param payload body models.MarkAttendanceRequest true "Mark payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/{classId}/{dateKey} [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	if err := h.attendance.Mark(c.Request.Context(), c.Param("classId"), c.Param("dateKey"), claims.Role, claims.Subject, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Issues godoc
// @Summary Class issue view
// @Description All TARDY/ABSENT records for the class, newest date first
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/issues/{classId} [get]
func (h *AttendanceHandler) Issues(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	issues, err := h.attendance.Issues(c.Request.Context(), c.Param("classId"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues)
}

// History godoc
// @Summary Student issue history
// @Description One student's TARDY/ABSENT entries for a class, newest first
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param lrn path string true "Student LRN"
// @Success 200 {object} response.Envelope
// @Router /attendance/history/{classId}/{lrn} [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	history, err := h.attendance.History(c.Request.Context(), c.Param("classId"), c.Param("lrn"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}

// Summary godoc
// @Summary Daily presence summary
// @Description Presence counts for one class date; unmarked students count as present
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param dateKey path string true "Date key (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary/{classId}/{dateKey} [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.attendance.Summary(c.Request.Context(), c.Param("classId"), c.Param("dateKey"), claims.Role, claims.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// ExportIssues godoc
// @Summary Export issue log
// @Description Attendance issue log as csv, pdf or xlsx
// @Tags Attendance
// @Produce octet-stream
// @Param classId path string true "Class ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /attendance/issues/{classId}/export [get]
func (h *AttendanceHandler) ExportIssues(c *gin.Context) {
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

	file, err := h.exports.IssueLog(c.Request.Context(), c.Param("classId"), claims.Role, claims.Subject, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
