// Package service implements the account self-service operations.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/pointagehq/pointage/internal/account/domain"
	"github.com/pointagehq/pointage/internal/auth/password"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/events"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minPasswordLength = 10

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Orgs   organizationdomain.Repository
	Badges badgedomain.Repository
	Events badgedomain.EventRepository
	Outbox *events.Outbox
}

type Service struct {
	log    *zap.Logger
	clock  clock.Clock
	orgs   organizationdomain.Repository
	badges badgedomain.Repository
	events badgedomain.EventRepository
	outbox *events.Outbox
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		log:    p.Log.Named("account.service"),
		clock:  p.Clock,
		orgs:   p.Orgs,
		badges: p.Badges,
		events: p.Events,
		outbox: p.Outbox,
	}
}

func (s *Service) Export(ctx context.Context, userID snowflake.ID) (*accountdomain.ExportBundle, error) {
	user, err := s.orgs.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.badges.ListAssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ledger, err := s.events.ListForUser(ctx, userID, time.Unix(0, 0).UTC(), now)
	if err != nil {
		return nil, err
	}

	s.log.Info("gdpr export generated",
		zap.String("user_id", userID.String()),
		zap.Int("events", len(ledger)),
	)
	return &accountdomain.ExportBundle{
		GeneratedAt: now,
		Profile:     *user,
		Badges:      assignments,
		Events:      ledger,
	}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID snowflake.ID, req accountdomain.UpdateProfileRequest) (*organizationdomain.User, error) {
	user, err := s.orgs.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, organizationdomain.ErrDeactivated
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, accountdomain.ErrInvalidDisplayName
	}
	user.DisplayName = displayName

	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			return nil, accountdomain.ErrInvalidPassword
		}
		hash, err := password.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = &hash
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.orgs.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Deactivate(ctx context.Context, userID snowflake.ID) error {
	user, err := s.orgs.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Active() {
		return accountdomain.ErrAlreadyDeactivated
	}

	now := s.clock.Now()
	if err := s.orgs.DeactivateUser(ctx, userID, now); err != nil {
		return err
	}

	// Active badge assignments are revoked so the physical card stops
	// working immediately.
	assignments, err := s.badges.ListAssignmentsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, assignment := range assignments {
		if !assignment.ActiveAt(now) {
			continue
		}
		if err := s.badges.RevokeAssignment(ctx, assignment.ID, now); err != nil {
			return err
		}
	}

	err = s.outbox.Publish(ctx, events.Event{
		OrgID:     user.OrgID,
		Type:      events.EventUserDeactivated,
		Payload:   map[string]any{"user_id": userID.String(), "at": now.Format(time.RFC3339)},
		DedupeKey: "deactivate:" + userID.String(),
	})
	if err != nil {
		return err
	}

	s.log.Info("account deactivated", zap.String("user_id", userID.String()))
	return nil
}
