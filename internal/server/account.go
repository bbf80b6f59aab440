package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/pointagehq/pointage/internal/account/domain"
)

// ExportMyData serves the personal data bundle as a download.
func (s *Server) ExportMyData(c *gin.Context) {
	userID, ok := s.sessionUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	bundle, err := s.accountSvc.Export(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="pointage-export.json"`)
	c.JSON(http.StatusOK, bundle)
}

func (s *Server) UpdateMyProfile(c *gin.Context) {
	userID, ok := s.sessionUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req accountdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	user, err := s.accountSvc.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) DeactivateMyAccount(c *gin.Context) {
	userID, ok := s.sessionUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if err := s.accountSvc.Deactivate(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
