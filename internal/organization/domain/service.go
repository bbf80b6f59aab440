package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound        = errors.New("organisation_not_found")
	ErrUserNotFound    = errors.New("user_not_found")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidTimezone = errors.New("invalid_timezone")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrEmailTaken      = errors.New("email_taken")
	ErrDeactivated     = errors.New("account_deactivated")
	ErrBadCredentials  = errors.New("bad_credentials")
)

// Repository is the storage surface for organisations and users.
type Repository interface {
	FindOrganisation(ctx context.Context, orgID snowflake.ID) (*Organisation, error)
	ListOrganisations(ctx context.Context) ([]Organisation, error)
	FindUser(ctx context.Context, userID snowflake.ID) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsersByOrg(ctx context.Context, orgID snowflake.ID) ([]User, error)
	InsertOrganisation(ctx context.Context, org *Organisation) error
	InsertUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	DeactivateUser(ctx context.Context, userID snowflake.ID, at time.Time) error
	InsertToken(ctx context.Context, token *UserToken) error
	FindTokenByHash(ctx context.Context, hash string) (*UserToken, error)
}

// Service manages organisations and their members.
type Service interface {
	Create(ctx context.Context, req CreateOrganisationRequest) (*Organisation, error)
	Get(ctx context.Context, orgID snowflake.ID) (*Organisation, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	// GetUser resolves a member of the calling organisation.
	GetUser(ctx context.Context, userID snowflake.ID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// RoleOf returns the role of the user inside its organisation, or
	// ErrUserNotFound / ErrDeactivated.
	RoleOf(ctx context.Context, userID snowflake.ID) (string, error)
	// Login verifies credentials and issues a personal token. The raw token
	// is returned exactly once; only its hash is stored.
	Login(ctx context.Context, email, plaintext string) (string, *User, error)
}

type CreateOrganisationRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	TimezoneName string `json:"timezone_name"`
}

type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}
