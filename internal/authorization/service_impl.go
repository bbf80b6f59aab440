package authorization

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memberCapabilities lists what a MEMBER may do. Admins may do everything
// within their organisation; devices only record pointages.
var memberCapabilities = map[string]map[string]bool{
	ObjectPointage: {ActionPointageRecord: true},
	ObjectReport:   {ActionReportViewSelf: true},
	ObjectAccount:  {ActionAccountExport: true, ActionAccountDeactivate: true},
}

var deviceCapabilities = map[string]map[string]bool{
	ObjectPointage: {ActionPointageRecord: true},
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type ServiceImpl struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:  p.DB,
		log: p.Log.Named("authorization.service"),
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	orgID = strings.TrimSpace(orgID)
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)

	if actor == "" {
		return ErrInvalidActor
	}
	if orgID == "" {
		return ErrInvalidOrganization
	}
	if object == "" {
		return ErrInvalidObject
	}
	if action == "" {
		return ErrInvalidAction
	}

	if actor == "system" {
		return nil
	}

	kind, id, ok := strings.Cut(actor, ":")
	if !ok || strings.TrimSpace(id) == "" {
		return ErrInvalidActor
	}

	switch kind {
	case "device":
		if deviceCapabilities[object][action] {
			return nil
		}
		return ErrForbidden
	case "user":
		return s.authorizeUser(ctx, id, orgID, object, action)
	default:
		return ErrInvalidActor
	}
}

func (s *ServiceImpl) authorizeUser(ctx context.Context, userID, orgID, object, action string) error {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return ErrInvalidActor
	}
	oid, err := strconv.ParseInt(orgID, 10, 64)
	if err != nil {
		return ErrInvalidOrganization
	}

	var row struct {
		Role          string
		DeactivatedAt *string
	}
	err = s.db.WithContext(ctx).
		Table("users").
		Select("role", "deactivated_at").
		Where("id = ? AND org_id = ?", uid, oid).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	if row.DeactivatedAt != nil {
		return ErrForbidden
	}

	if strings.EqualFold(row.Role, "ADMIN") {
		return nil
	}
	if memberCapabilities[object][action] {
		return nil
	}
	return ErrForbidden
}
