package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
)

func (s *Server) ListBadges(c *gin.Context) {
	badges, err := s.badgeSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

func (s *Server) IssueBadge(c *gin.Context) {
	var req badgedomain.IssueBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	badge, err := s.badgeSvc.Issue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, badge)
}

func (s *Server) AssignBadge(c *gin.Context) {
	var req badgedomain.AssignBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	assignment, err := s.badgeSvc.Assign(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func (s *Server) RevokeAssignment(c *gin.Context) {
	if err := s.badgeSvc.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
