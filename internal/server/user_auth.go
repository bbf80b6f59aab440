package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pointagehq/pointage/internal/authorization"
	obscontext "github.com/pointagehq/pointage/internal/observability/context"
	"github.com/pointagehq/pointage/internal/orgcontext"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
)

// UserTokenRequired authenticates requests with a personal bearer token.
func (s *Server) UserTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		hash := organizationdomain.HashToken(parts[1])
		now := time.Now().UTC()

		var record struct {
			UserID        snowflake.ID `gorm:"column:user_id"`
			OrgID         snowflake.ID `gorm:"column:org_id"`
			Role          string       `gorm:"column:role"`
			DeactivatedAt *time.Time   `gorm:"column:deactivated_at"`
		}
		if err := s.db.WithContext(c.Request.Context()).Raw(
			`SELECT t.user_id, u.org_id, u.role, u.deactivated_at
			 FROM user_tokens t
			 JOIN users u ON u.id = t.user_id
			 WHERE t.token_hash = ?
			   AND (t.expires_at IS NULL OR t.expires_at > ?)
			 LIMIT 1`,
			hash,
			now,
		).Scan(&record).Error; err != nil {
			AbortWithError(c, err)
			return
		}

		if record.UserID == 0 || record.DeactivatedAt != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		ctx = orgcontext.WithOrgID(ctx, int64(record.OrgID))
		ctx = orgcontext.WithUserID(ctx, int64(record.UserID))
		ctx = obscontext.WithOrgID(ctx, record.OrgID.String())
		ctx = obscontext.WithActor(ctx, obscontext.ActorUser, record.UserID.String())

		c.Set(contextUserIDKey, record.UserID.String())
		c.Set(contextOrgKey, int64(record.OrgID))
		c.Set(contextRoleKey, record.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminRequired gates the admin surface behind the authorization service.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.userIDFromSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		err := s.authzSvc.Authorize(
			c.Request.Context(),
			"user:"+userID.String(),
			strconv.FormatInt(orgID, 10),
			authorization.ObjectReport,
			authorization.ActionReportViewOrg,
		)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) userIDFromSession(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	raw, ok := value.(string)
	if !ok {
		return 0, false
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return userID, true
}
