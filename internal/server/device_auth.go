package server

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/pointagehq/pointage/internal/observability/context"
	"github.com/pointagehq/pointage/internal/orgcontext"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
)

// HeaderDeviceKey carries the raw reader device key.
const HeaderDeviceKey = "X-Device-Key"

// DeviceKeyRequired authenticates a badge reader device. Organisation and
// reader identity derive solely from the reader_api_keys table.
func (s *Server) DeviceKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderDeviceKey))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		hash := topodomain.HashAPIKey(raw)
		now := time.Now().UTC()

		var record struct {
			ID       snowflake.ID `gorm:"column:id"`
			OrgID    snowflake.ID `gorm:"column:org_id"`
			ReaderID snowflake.ID `gorm:"column:reader_id"`
			KeyHash  string       `gorm:"column:key_hash"`
		}
		if err := s.db.WithContext(c.Request.Context()).Raw(
			`SELECT id, org_id, reader_id, key_hash
			 FROM reader_api_keys
			 WHERE key_hash = ?
			   AND is_active = true
			   AND (expires_at IS NULL OR expires_at > ?)
			 LIMIT 1`,
			hash,
			now,
		).Scan(&record).Error; err != nil {
			AbortWithError(c, err)
			return
		}

		if record.ID == 0 || subtle.ConstantTimeCompare([]byte(record.KeyHash), []byte(hash)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		ctx = orgcontext.WithOrgID(ctx, int64(record.OrgID))
		ctx = orgcontext.WithReaderID(ctx, int64(record.ReaderID))
		ctx = obscontext.WithOrgID(ctx, record.OrgID.String())
		ctx = obscontext.WithActor(ctx, obscontext.ActorDevice, record.ReaderID.String())

		c.Set(contextOrgKey, int64(record.OrgID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
