package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
)

type (
	CategoryReq struct {
		Name        string  `json:"name" validate:"required,max=255"`
		Description *string `json:"description" validate:"omitempty,max=1000"`
	}

	BadgeReq struct {
		Name        string  `json:"name" validate:"required,max=255"`
		Description *string `json:"description" validate:"omitempty,max=1000"`
	}
)

func (s *General) CategoryList(ctx context.Context) ([]db.Category, error) {
	categories := make([]db.Category, 0)
	if res := s.db.WithContext(ctx).Order("name").Find(&categories); res.Error != nil {
		return nil, errors.Wrap(res.Error, "list categories")
	}
	return categories, nil
}

func (s *General) CategoryCreate(ctx context.Context, actor *db.User, req CategoryReq) (*db.Category, error) {
	category := db.Category{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermCategoriesManage); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		isTaken, err := taken(tx, &db.Category{}, "name", req.Name, 0)
		if err != nil {
			return err
		}
		if isTaken {
			return invalid("name", "unique")
		}

		category = db.Category{Name: req.Name, Description: req.Description}
		if res := tx.Create(&category); res.Error != nil {
			return errors.Wrap(res.Error, "create category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *General) BadgeList(ctx context.Context) ([]db.Badge, error) {
	badges := make([]db.Badge, 0)
	if res := s.db.WithContext(ctx).Order("name").Find(&badges); res.Error != nil {
		return nil, errors.Wrap(res.Error, "list badges")
	}
	return badges, nil
}

func (s *General) BadgeCreate(ctx context.Context, actor *db.User, req BadgeReq) (*db.Badge, error) {
	badge := db.Badge{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePermission(tx, actor, db.PermBadgesManage); err != nil {
			return err
		}
		if err := s.validate.Struct(&req); err != nil {
			return err
		}
		isTaken, err := taken(tx, &db.Badge{}, "name", req.Name, 0)
		if err != nil {
			return err
		}
		if isTaken {
			return invalid("name", "unique")
		}

		badge = db.Badge{Name: req.Name, Description: req.Description}
		if res := tx.Create(&badge); res.Error != nil {
			return errors.Wrap(res.Error, "create badge")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &badge, nil
}
