package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
)

type (
	RoleReq struct {
		Name      string `json:"name" validate:"required,max=255"`
		ColorCode string `json:"color_code" validate:"required,len=6,hexadecimal"`
	}

	RolePermissionReq struct {
		PermissionID uint64 `json:"permission_id" validate:"required"`
	}
)

func (s *General) RoleList(ctx context.Context) ([]db.Role, error) {
	roles := make([]db.Role, 0)
	if res := s.db.WithContext(ctx).Order("id").Find(&roles); res.Error != nil {
		return nil, errors.Wrap(res.Error, "list roles")
	}
	return roles, nil
}

func (s *General) RoleGet(ctx context.Context, id uint64) (*db.Role, error) {
	role := db.Role{}
	if err := first(s.db.WithContext(ctx).Preload("Permissions"), &role, id, "Role"); err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *General) RoleCreate(ctx context.Context, actor *db.User, req RoleReq) (*db.Role, error) {
	role := db.Role{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermRolesManage); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		isTaken, err := taken(tx, &db.Role{}, "name", req.Name, 0)
		if err != nil {
			return err
		}
		if isTaken {
			return invalid("name", "unique")
		}

		role = db.Role{Name: req.Name, ColorCode: req.ColorCode}
		if res := tx.Create(&role); res.Error != nil {
			return errors.Wrap(res.Error, "create role")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *General) RoleUpdate(ctx context.Context, actor *db.User, id uint64, req RoleReq) (*db.Role, error) {
	role := db.Role{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermRolesManage); err != nil {
			return err
		}
		if err := first(tx, &role, id, "Role"); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		isTaken, err := taken(tx, &db.Role{}, "name", req.Name, role.ID)
		if err != nil {
			return err
		}
		if isTaken {
			return invalid("name", "unique")
		}

		role.Name = req.Name
		role.ColorCode = req.ColorCode
		if res := tx.Save(&role); res.Error != nil {
			return errors.Wrap(res.Error, "update role")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// RoleDelete soft-deletes a role that no live user holds.
func (s *General) RoleDelete(ctx context.Context, actor *db.User, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermRolesManage); err != nil {
			return err
		}
		role := db.Role{}
		if err := first(tx, &role, id, "Role"); err != nil {
			return err
		}

		var holders int64
		if res := tx.Model(&db.User{}).Where("role_id = ?", role.ID).Count(&holders); res.Error != nil {
			return errors.Wrap(res.Error, "count role holders")
		}
		if holders > 0 {
			return (&ValidationError{}).Add("role", "The role is still assigned to users.")
		}

		if res := tx.Delete(&role); res.Error != nil {
			return errors.Wrap(res.Error, "delete role")
		}
		return nil
	})
}

func (s *General) RoleGrant(ctx context.Context, actor *db.User, id uint64, req RolePermissionReq) (*db.Role, error) {
	return s.changeGrant(ctx, actor, id, req, func(a *gorm.Association, p *db.Permission) error {
		return a.Append(p)
	})
}

func (s *General) RoleRevoke(ctx context.Context, actor *db.User, id uint64, req RolePermissionReq) (*db.Role, error) {
	return s.changeGrant(ctx, actor, id, req, func(a *gorm.Association, p *db.Permission) error {
		return a.Delete(p)
	})
}

func (s *General) changeGrant(ctx context.Context, actor *db.User, id uint64, req RolePermissionReq, change func(*gorm.Association, *db.Permission) error) (*db.Role, error) {
	role := db.Role{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermRolesManage); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		if err := first(tx, &role, id, "Role"); err != nil {
			return err
		}
		permission := db.Permission{}
		if err := first(tx, &permission, req.PermissionID, "Permission"); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("permission_id", "exists")
			}
			return err
		}

		if err := change(tx.Model(&role).Association("Permissions"), &permission); err != nil {
			return errors.Wrap(err, "change grant")
		}
		return tx.Preload("Permissions").First(&role, role.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}
