// Package service implements badge lifecycle management.
package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  badgedomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  badgedomain.Repository
}

func NewService(p Params) badgedomain.Service {
	return &Service{
		log:   p.Log.Named("badge.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Issue(ctx context.Context, req badgedomain.IssueBadgeRequest) (*badgedomain.Badge, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	serial := strings.TrimSpace(req.Serial)
	if serial == "" {
		serial = uuid.NewString()
	}

	badge := &badgedomain.Badge{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Serial:    serial,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, badge); err != nil {
		return nil, err
	}

	s.log.Info("badge issued",
		zap.String("badge_id", badge.ID.String()),
		zap.String("org_id", orgID.String()),
	)
	return badge, nil
}

func (s *Service) Assign(ctx context.Context, req badgedomain.AssignBadgeRequest) (*badgedomain.BadgeAssignment, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	badgeID, err := parseID(req.BadgeID)
	if err != nil {
		return nil, badgedomain.ErrBadgeNotFound
	}
	userID, err := parseID(req.UserID)
	if err != nil {
		return nil, badgedomain.ErrInvalidUser
	}

	startsAt := req.StartsAt
	if startsAt.IsZero() {
		startsAt = s.clock.Now()
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(startsAt) {
		return nil, badgedomain.ErrInvalidWindow
	}

	existing, err := s.repo.ActiveAssignment(ctx, nil, badgeID, s.clock.Now(), false)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, badgedomain.ErrAlreadyAssigned
	}

	assignment := &badgedomain.BadgeAssignment{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		BadgeID:   badgeID,
		UserID:    userID,
		StartsAt:  startsAt,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	s.log.Info("badge assigned",
		zap.String("badge_id", badgeID.String()),
		zap.String("user_id", userID.String()),
	)
	return assignment, nil
}

func (s *Service) Revoke(ctx context.Context, assignmentID string) error {
	id, err := parseID(assignmentID)
	if err != nil {
		return badgedomain.ErrAssignmentNotFound
	}
	return s.repo.RevokeAssignment(ctx, id, s.clock.Now())
}

func (s *Service) List(ctx context.Context) ([]badgedomain.Badge, error) {
	orgID, err := orgIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOrg(ctx, orgID)
}

func orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok {
		return snowflake.ID(orgID), nil
	}
	return 0, badgedomain.ErrInvalidUser
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		if err == nil {
			err = badgedomain.ErrInvalidUser
		}
		return 0, err
	}
	return id, nil
}
