package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pointagehq/pointage/internal/authorization"
	"github.com/pointagehq/pointage/internal/orgcontext"
	pointagedomain "github.com/pointagehq/pointage/internal/pointage/domain"
)

type recordPointageRequest struct {
	BadgeSerial string `json:"badge_serial"`
}

// RecordPointage is the device endpoint: the reader identity comes from the
// device key, never from the body.
func (s *Server) RecordPointage(c *gin.Context) {
	var req recordPointageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	serial := strings.TrimSpace(req.BadgeSerial)
	if serial == "" {
		AbortWithError(c, newValidationError("badge_serial", "invalid_serial", "badge serial is required"))
		return
	}

	result, err := s.pointageSvc.Record(c.Request.Context(), pointagedomain.RecordRequest{
		BadgeSerial: serial,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

type manualPointageRequest struct {
	BadgeSerial string `json:"badge_serial"`
	ReaderID    string `json:"reader_id"`
	Force       bool   `json:"force"`
}

// RecordManualPointage lets an admin replay a badge presentation, optionally
// forcing past zone grants and the cooldown window.
func (s *Server) RecordManualPointage(c *gin.Context) {
	var req manualPointageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	serial := strings.TrimSpace(req.BadgeSerial)
	if serial == "" {
		AbortWithError(c, newValidationError("badge_serial", "invalid_serial", "badge serial is required"))
		return
	}
	if strings.TrimSpace(req.ReaderID) == "" {
		AbortWithError(c, newValidationError("reader_id", "invalid_reader", "reader id is required"))
		return
	}

	if req.Force {
		userID, ok := s.userIDFromSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		orgID, _ := orgcontext.OrgIDFromContext(c.Request.Context())
		if err := s.authzSvc.Authorize(
			c.Request.Context(),
			"user:"+userID.String(),
			strconv.FormatInt(orgID, 10),
			authorization.ObjectPointage,
			authorization.ActionPointageForce,
		); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	result, err := s.pointageSvc.Record(c.Request.Context(), pointagedomain.RecordRequest{
		BadgeSerial: serial,
		ReaderID:    strings.TrimSpace(req.ReaderID),
		Force:       req.Force,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
