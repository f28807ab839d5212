package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
)

type (
	UserRoleReq struct {
		RoleID uint64 `json:"role_id" validate:"required"`
	}

	UserBadgeReq struct {
		BadgeID uint64 `json:"badge_id" validate:"required"`
	}
)

func (s *General) UserList(ctx context.Context, page PageReq) ([]db.User, *PageMeta, error) {
	users := make([]db.User, 0)
	q := s.db.WithContext(ctx).Model(&db.User{})
	meta, err := s.paginate(q, page, "id", &users, "Role")
	if err != nil {
		return nil, nil, err
	}
	return users, meta, nil
}

func (s *General) UserGet(ctx context.Context, id uint64) (*db.User, error) {
	user := db.User{}
	if err := first(s.db.WithContext(ctx).Preload("Role").Preload("Badges"), &user, id, "User"); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserDelete soft-deletes a user. Users may delete themselves; anybody else
// needs users_manage.
func (s *General) UserDelete(ctx context.Context, actor *db.User, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := db.User{}
		if err := first(tx, &user, id, "User"); err != nil {
			return err
		}
		if user.ID != actor.ID {
			if err := requirePermission(tx, actor, db.PermUsersManage); err != nil {
				return err
			}
		}
		if res := tx.Delete(&user); res.Error != nil {
			return errors.Wrap(res.Error, "delete user")
		}
		return s.recordActivity(tx, actor, "user_deleted", "", map[string]interface{}{"user_id": user.ID})
	})
}

func (s *General) UserAssignRole(ctx context.Context, actor *db.User, id uint64, req UserRoleReq) (*db.User, error) {
	user := db.User{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermUsersManage); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		if err := first(tx, &user, id, "User"); err != nil {
			return err
		}
		role := db.Role{}
		if err := first(tx, &role, req.RoleID, "Role"); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("role_id", "exists")
			}
			return err
		}

		if res := tx.Model(&user).Update("role_id", role.ID); res.Error != nil {
			return errors.Wrap(res.Error, "assign role")
		}
		user.Role = &role
		return s.recordActivity(tx, actor, "role_assigned", "", map[string]interface{}{
			"user_id": user.ID,
			"role_id": role.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *General) UserAwardBadge(ctx context.Context, actor *db.User, id uint64, req UserBadgeReq) (*db.User, error) {
	user := db.User{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermBadgesManage); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		if err := first(tx, &user, id, "User"); err != nil {
			return err
		}
		badge := db.Badge{}
		if err := first(tx, &badge, req.BadgeID, "Badge"); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("badge_id", "exists")
			}
			return err
		}

		if err := tx.Model(&user).Association("Badges").Append(&badge); err != nil {
			return errors.Wrap(err, "award badge")
		}
		return tx.Preload("Badges").First(&user, user.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserActivities lists the audit trail of a user, newest first. Only the user
// and holders of users_manage may read it.
func (s *General) UserActivities(ctx context.Context, actor *db.User, id uint64, page PageReq) ([]db.Activity, *PageMeta, error) {
	tx := s.db.WithContext(ctx)
	if actor.ID != id {
		if err := requirePermission(tx, actor, db.PermUsersManage); err != nil {
			return nil, nil, err
		}
	}

	activities := make([]db.Activity, 0)
	q := tx.Model(&db.Activity{}).Where("issuer_type = ? AND issuer_id = ?", db.IssuerTypeUser, id)
	meta, err := s.paginate(q, page, "id DESC", &activities)
	if err != nil {
		return nil, nil, err
	}
	return activities, meta, nil
}
