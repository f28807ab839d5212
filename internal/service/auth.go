package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
)

type (
	RegisterReq struct {
		Email    string  `json:"email" validate:"required,email,max=255"`
		Password string  `json:"password" validate:"required,min=8,max=72"`
		Name     string  `json:"name" validate:"required,max=255"`
		PreName  *string `json:"pre_name" validate:"omitempty,max=255"`
		LastName *string `json:"last_name" validate:"omitempty,max=255"`
	}

	LoginReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	VerifyEmailReq struct {
		Code string `json:"code" validate:"required"`
	}
)

func (s *General) Register(ctx context.Context, req RegisterReq) (*db.User, string, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, "", err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := s.bcryptGen(req.Password)
	if err != nil {
		return nil, "", errors.Wrap(err, "bcryptGen")
	}

	user := db.User{
		Name:                  req.Name,
		PreName:               req.PreName,
		LastName:              req.LastName,
		Email:                 req.Email,
		Password:              hash,
		EmailVerificationCode: newVerificationCode(),
		Token:                 uuid.New().String(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		isTaken, err := taken(tx, &db.User{}, "email", req.Email, 0)
		if err != nil {
			return err
		}
		if isTaken {
			return invalid("email", "unique")
		}

		role := db.Role{}
		res := tx.Where("name = ?", db.RoleUser).First(&role)
		if res.Error != nil {
			return errors.Wrap(res.Error, "find default role")
		}
		user.RoleID = role.ID

		if res := tx.Create(&user); res.Error != nil {
			return errors.Wrap(res.Error, "create user")
		}
		user.Role = &role

		return s.recordActivity(tx, &user, "registered", "", nil)
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Generate(user.ID, user.Token)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *General) Login(ctx context.Context, req LoginReq) (string, error) {
	if err := s.validate.Struct(&req); err != nil {
		return "", err
	}

	user := db.User{}
	res := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return "", ErrLoginUserNotFound
		}
		return "", res.Error
	}

	if err := s.bcryptCheck(user.Password, req.Password); err != nil {
		return "", ErrLoginPasswordDoesNotMatch
	}

	sessionID := uuid.New().String()
	res = s.db.WithContext(ctx).Model(&user).Update("token", sessionID)
	if res.Error != nil {
		return "", errors.Wrap(res.Error, "update token")
	}

	return s.issuer.Generate(user.ID, sessionID)
}

// Logout rotates the session id, which invalidates every token issued so far.
func (s *General) Logout(ctx context.Context, user *db.User) error {
	res := s.db.WithContext(ctx).Model(user).Update("token", uuid.New().String())
	if res.Error != nil {
		return errors.Wrap(res.Error, "rotate token")
	}
	return nil
}

// Authenticate resolves a bearer token to a live user with its role loaded.
func (s *General) Authenticate(ctx context.Context, token string) (*db.User, error) {
	userID, sessionID, err := s.issuer.Parse(token)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}

	user := db.User{}
	res := s.db.WithContext(ctx).Preload("Role").First(&user, userID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrUnauthorized, "user not found")
		}
		return nil, errors.Wrap(res.Error, "find user in db")
	}
	if user.Token != sessionID {
		return nil, errors.Wrap(ErrUnauthorized, "session expired")
	}
	return &user, nil
}

func (s *General) VerifyEmail(ctx context.Context, user *db.User, req VerifyEmailReq) (*db.User, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}
	if user.EmailVerifiedAt != nil {
		return user, nil
	}
	if !strings.EqualFold(strings.TrimSpace(req.Code), user.EmailVerificationCode) {
		return nil, invalid("code", "exists")
	}

	now := time.Now()
	res := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"email_verified_at":       now,
		"email_verification_code": "",
	})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "verify email")
	}
	user.EmailVerifiedAt = &now
	return user, nil
}

func newVerificationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
