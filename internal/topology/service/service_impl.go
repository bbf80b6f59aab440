// Package service implements topology queries with a short TTL cache in
// front of the reader-to-zone wiring, which is static between admin edits.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pointagehq/pointage/internal/cache"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/orgcontext"
	topologydomain "github.com/pointagehq/pointage/internal/topology/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const zoneCacheTTL = 30 * time.Second

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  topologydomain.Repository
	// Redis is optional; with several API replicas it keeps zone cache
	// invalidation after admin edits visible to all of them.
	Redis *redis.Client `optional:"true"`
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  topologydomain.Repository
	zones cache.Cache[snowflake.ID, []topologydomain.Zone]
}

func NewService(p Params) topologydomain.Service {
	var zones cache.Cache[snowflake.ID, []topologydomain.Zone]
	zones = cache.NewTTLCache[snowflake.ID, []topologydomain.Zone]()
	if p.Redis != nil {
		zones = redisZoneCache{inner: cache.NewRedisCache(p.Redis, "topology:zones:")}
	}
	return &Service{
		log:   p.Log.Named("topology.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		zones: zones,
	}
}

// redisZoneCache adapts the byte-valued redis cache to the typed zone cache.
type redisZoneCache struct {
	inner *cache.RedisCache
}

func (c redisZoneCache) Get(key snowflake.ID) ([]topologydomain.Zone, bool) {
	raw, ok := c.inner.Get(key.String())
	if !ok {
		return nil, false
	}
	var zones []topologydomain.Zone
	if err := json.Unmarshal(raw, &zones); err != nil {
		return nil, false
	}
	return zones, true
}

func (c redisZoneCache) Set(key snowflake.ID, zones []topologydomain.Zone, ttl time.Duration) {
	raw, err := json.Marshal(zones)
	if err != nil {
		return
	}
	c.inner.Set(key.String(), raw, ttl)
}

func (c redisZoneCache) Delete(key snowflake.ID) {
	c.inner.Delete(key.String())
}

func (s *Service) ZonesReachableVia(ctx context.Context, readerID snowflake.ID) ([]topologydomain.Zone, error) {
	if zones, ok := s.zones.Get(readerID); ok {
		return zones, nil
	}
	zones, err := s.repo.ZonesForReader(ctx, readerID)
	if err != nil {
		return nil, err
	}
	s.zones.Set(readerID, zones, zoneCacheTTL)
	return zones, nil
}

func (s *Service) UserHasActiveGrant(ctx context.Context, userID snowflake.ID, zones []topologydomain.Zone, at time.Time) (bool, error) {
	if len(zones) == 0 {
		return false, nil
	}
	grants, err := s.repo.GrantsForUser(ctx, userID, at)
	if err != nil {
		return false, err
	}
	granted := make(map[snowflake.ID]struct{}, len(grants))
	for _, grant := range grants {
		if grant.ActiveAt(at) {
			granted[grant.ZoneID] = struct{}{}
		}
	}
	for _, zone := range zones {
		if _, ok := granted[zone.ID]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) ReaderByID(ctx context.Context, readerID snowflake.ID) (*topologydomain.Reader, error) {
	reader, err := s.repo.FindReader(ctx, readerID)
	if err != nil {
		return nil, err
	}
	if reader.Blocked {
		return nil, topologydomain.ErrReaderBlocked
	}
	return reader, nil
}

func (s *Service) CreateReader(ctx context.Context, req topologydomain.CreateReaderRequest) (*topologydomain.Reader, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, topologydomain.ErrInvalidRef
	}
	installedAt := req.InstalledAt
	if installedAt.IsZero() {
		installedAt = s.clock.Now()
	}
	reader := &topologydomain.Reader{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Reference:   reference,
		InstalledAt: installedAt,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertReader(ctx, reader); err != nil {
		return nil, err
	}
	s.log.Info("reader created", zap.String("reference", reference))
	return reader, nil
}

func (s *Service) CreateZone(ctx context.Context, req topologydomain.CreateZoneRequest) (*topologydomain.Zone, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, topologydomain.ErrInvalidName
	}
	zone := &topologydomain.Zone{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		IsPrincipal: req.IsPrincipal,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertZone(ctx, zone); err != nil {
		return nil, err
	}
	return zone, nil
}

func (s *Service) IssueKey(ctx context.Context, readerID string) (string, *topologydomain.ReaderAPIKey, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return "", nil, err
	}
	rid, err := snowflake.ParseString(strings.TrimSpace(readerID))
	if err != nil || rid == 0 {
		return "", nil, topologydomain.ErrReaderNotFound
	}
	reader, err := s.repo.FindReader(ctx, rid)
	if err != nil {
		return "", nil, err
	}
	if reader.OrgID != orgID {
		return "", nil, topologydomain.ErrReaderNotFound
	}

	raw := "dk_" + uuid.NewString()
	key := &topologydomain.ReaderAPIKey{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		ReaderID:  rid,
		KeyHash:   topologydomain.HashAPIKey(raw),
		IsActive:  true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertAPIKey(ctx, key); err != nil {
		return "", nil, err
	}
	s.log.Info("reader key issued", zap.String("reader_id", rid.String()))
	return raw, key, nil
}

func (s *Service) LinkZone(ctx context.Context, readerID, zoneID string) error {
	rid, err := snowflake.ParseString(strings.TrimSpace(readerID))
	if err != nil || rid == 0 {
		return topologydomain.ErrReaderNotFound
	}
	zid, err := snowflake.ParseString(strings.TrimSpace(zoneID))
	if err != nil || zid == 0 {
		return topologydomain.ErrZoneNotFound
	}
	if _, err := s.repo.FindReader(ctx, rid); err != nil {
		return err
	}
	if _, err := s.repo.FindZone(ctx, zid); err != nil {
		return err
	}
	if err := s.repo.LinkReaderZone(ctx, &topologydomain.ReaderZone{
		ID:       s.genID.Generate(),
		ReaderID: rid,
		ZoneID:   zid,
	}); err != nil {
		return err
	}
	s.zones.Delete(rid)
	return nil
}

func (s *Service) GrantAccess(ctx context.Context, req topologydomain.GrantAccessRequest) (*topologydomain.AccessGrant, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, topologydomain.ErrInvalidName
	}
	zoneID, err := snowflake.ParseString(strings.TrimSpace(req.ZoneID))
	if err != nil || zoneID == 0 {
		return nil, topologydomain.ErrZoneNotFound
	}
	if _, err := s.repo.FindZone(ctx, zoneID); err != nil {
		return nil, err
	}
	startsAt := req.StartsAt
	if startsAt.IsZero() {
		startsAt = s.clock.Now()
	}
	grant := &topologydomain.AccessGrant{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		ZoneID:    zoneID,
		StartsAt:  startsAt,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertGrant(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *Service) ListReaders(ctx context.Context) ([]topologydomain.Reader, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListReadersByOrg(ctx, orgID)
}

func (s *Service) ListZones(ctx context.Context) ([]topologydomain.Zone, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListZonesByOrg(ctx, orgID)
}

func (s *Service) orgID(ctx context.Context) (snowflake.ID, error) {
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok {
		return snowflake.ID(orgID), nil
	}
	return 0, topologydomain.ErrInvalidName
}
