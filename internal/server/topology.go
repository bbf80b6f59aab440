package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
)

func (s *Server) ListReaders(c *gin.Context) {
	readers, err := s.topologySvc.ListReaders(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"readers": readers})
}

func (s *Server) CreateReader(c *gin.Context) {
	var req topodomain.CreateReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	reader, err := s.topologySvc.CreateReader(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reader)
}

// IssueReaderKey returns the raw device key once; only its hash survives.
func (s *Server) IssueReaderKey(c *gin.Context) {
	raw, key, err := s.topologySvc.IssueKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"key_id":    key.ID,
		"reader_id": key.ReaderID,
		"key":       raw,
	})
}

func (s *Server) LinkReaderZone(c *gin.Context) {
	if err := s.topologySvc.LinkZone(c.Request.Context(), c.Param("id"), c.Param("zoneID")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListZones(c *gin.Context) {
	zones, err := s.topologySvc.ListZones(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

func (s *Server) CreateZone(c *gin.Context) {
	var req topodomain.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	zone, err := s.topologySvc.CreateZone(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, zone)
}

func (s *Server) GrantAccess(c *gin.Context) {
	var req topodomain.GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	grant, err := s.topologySvc.GrantAccess(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}
