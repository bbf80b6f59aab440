// Package service implements organisation and member management.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/pointagehq/pointage/internal/auth/password"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/orgcontext"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  organizationdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  organizationdomain.Repository
}

func NewService(p Params) organizationdomain.Service {
	return &Service{
		log:   p.Log.Named("organization.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req organizationdomain.CreateOrganisationRequest) (*organizationdomain.Organisation, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, organizationdomain.ErrInvalidName
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	}
	tz := strings.TrimSpace(req.TimezoneName)
	if tz == "" {
		tz = "Europe/Paris"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, organizationdomain.ErrInvalidTimezone
	}

	now := s.clock.Now()
	org := &organizationdomain.Organisation{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug,
		TimezoneName: tz,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertOrganisation(ctx, org); err != nil {
		return nil, err
	}

	s.log.Info("organisation created", zap.String("org_id", org.ID.String()), zap.String("slug", slug))
	return org, nil
}

func (s *Service) Get(ctx context.Context, orgID snowflake.ID) (*organizationdomain.Organisation, error) {
	return s.repo.FindOrganisation(ctx, orgID)
}

func (s *Service) CreateUser(ctx context.Context, req organizationdomain.CreateUserRequest) (*organizationdomain.User, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, organizationdomain.ErrNotFound
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, organizationdomain.ErrInvalidEmail
	}
	display := strings.TrimSpace(req.DisplayName)
	if display == "" {
		return nil, organizationdomain.ErrInvalidName
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = organizationdomain.RoleMember
	}
	if role != organizationdomain.RoleAdmin && role != organizationdomain.RoleMember {
		return nil, organizationdomain.ErrInvalidRole
	}

	if _, err := s.repo.FindUserByEmail(ctx, email); err == nil {
		return nil, organizationdomain.ErrEmailTaken
	} else if !errors.Is(err, organizationdomain.ErrUserNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	user := &organizationdomain.User{
		ID:          s.genID.Generate(),
		OrgID:       snowflake.ID(orgID),
		Email:       email,
		DisplayName: display,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Password != "" {
		hashed, err := password.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = &hashed
	}
	if err := s.repo.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", role))
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, userID snowflake.ID) (*organizationdomain.User, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok && user.OrgID != snowflake.ID(orgID) {
		return nil, organizationdomain.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]organizationdomain.User, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, organizationdomain.ErrNotFound
	}
	return s.repo.ListUsersByOrg(ctx, snowflake.ID(orgID))
}

func (s *Service) Login(ctx context.Context, email, plaintext string) (string, *organizationdomain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plaintext == "" {
		return "", nil, organizationdomain.ErrBadCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, organizationdomain.ErrUserNotFound) {
			return "", nil, organizationdomain.ErrBadCredentials
		}
		return "", nil, err
	}
	if !user.Active() {
		return "", nil, organizationdomain.ErrDeactivated
	}
	if user.PasswordHash == nil {
		return "", nil, organizationdomain.ErrBadCredentials
	}
	if err := password.Verify(plaintext, *user.PasswordHash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", nil, organizationdomain.ErrBadCredentials
		}
		return "", nil, err
	}

	now := s.clock.Now()
	raw := "pt_" + uuid.NewString()
	expires := now.Add(30 * 24 * time.Hour)
	token := &organizationdomain.UserToken{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: organizationdomain.HashToken(raw),
		ExpiresAt: &expires,
		CreatedAt: now,
	}
	if err := s.repo.InsertToken(ctx, token); err != nil {
		return "", nil, err
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return raw, user, nil
}

func (s *Service) RoleOf(ctx context.Context, userID snowflake.ID) (string, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.Active() {
		return "", organizationdomain.ErrDeactivated
	}
	return user.Role, nil
}
