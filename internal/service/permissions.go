package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
)

type PermissionReq struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (s *General) PermissionList(ctx context.Context, page PageReq) ([]db.Permission, *PageMeta, error) {
	permissions := make([]db.Permission, 0)
	meta, err := s.paginate(s.db.WithContext(ctx).Model(&db.Permission{}), page, "id", &permissions)
	if err != nil {
		return nil, nil, err
	}
	return permissions, meta, nil
}

// PermissionGet finds a permission by id. Soft-deleted permissions are only
// found with withTrashed.
func (s *General) PermissionGet(ctx context.Context, id uint64, withTrashed bool) (*db.Permission, error) {
	tx := s.db.WithContext(ctx)
	if withTrashed {
		tx = tx.Unscoped()
	}
	permission := db.Permission{}
	if err := first(tx, &permission, id, "Permission"); err != nil {
		return nil, err
	}
	return &permission, nil
}

func (s *General) PermissionCreate(ctx context.Context, actor *db.User, req PermissionReq) (*db.Permission, error) {
	permission := db.Permission{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermPermissionsManage); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		isTaken, err := taken(tx, &db.Permission{}, "name", req.Name, 0)
		if err != nil {
			return err
		}
		if isTaken {
			return invalid("name", "unique")
		}

		userID := actor.ID
		permission = db.Permission{
			Name:   req.Name,
			UserID: &userID,
		}
		if res := tx.Create(&permission); res.Error != nil {
			return errors.Wrap(res.Error, "create permission")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &permission, nil
}

func (s *General) PermissionUpdate(ctx context.Context, actor *db.User, id uint64, req PermissionReq) (*db.Permission, error) {
	permission := db.Permission{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermPermissionsManage); err != nil {
			return err
		}
		if err := first(tx, &permission, id, "Permission"); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		isTaken, err := taken(tx, &db.Permission{}, "name", req.Name, permission.ID)
		if err != nil {
			return err
		}
		if isTaken {
			return invalid("name", "unique")
		}

		permission.Name = req.Name
		if res := tx.Save(&permission); res.Error != nil {
			return errors.Wrap(res.Error, "update permission")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &permission, nil
}

// PermissionDelete soft-deletes a permission. Roles keep their grant rows but
// capability checks skip deleted permissions.
func (s *General) PermissionDelete(ctx context.Context, actor *db.User, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermPermissionsManage); err != nil {
			return err
		}
		permission := db.Permission{}
		if err := first(tx, &permission, id, "Permission"); err != nil {
			return err
		}
		if res := tx.Delete(&permission); res.Error != nil {
			return errors.Wrap(res.Error, "delete permission")
		}
		return nil
	})
}
