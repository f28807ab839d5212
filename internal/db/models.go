package db

import (
	"time"

	"gorm.io/gorm"
)

const IssuerTypeUser = 1

type (
	// GormForkedModel is gorm.Model with uint64 ids and a soft delete column.
	GormForkedModel struct {
		ID        uint64         `gorm:"primarykey" json:"id"`
		CreatedAt time.Time      `json:"created_at"`
		UpdatedAt time.Time      `json:"updated_at"`
		DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	}

	User struct {
		GormForkedModel
		Name                  string     `gorm:"not null" json:"name"`
		PreName               *string    `json:"pre_name"`
		LastName              *string    `json:"last_name"`
		ProfilePicture        *string    `json:"profile_picture"`
		Email                 string     `gorm:"unique;not null" json:"email"`
		Password              string     `gorm:"not null" json:"-"`
		EmailVerificationCode string     `json:"-"`
		EmailVerifiedAt       *time.Time `json:"email_verified_at"`
		Token                 string     `gorm:"not null;index" json:"-"`
		RoleID                uint64     `gorm:"not null" json:"role_id"`
		Role                  *Role      `json:"role,omitempty"`
		Badges                []Badge    `gorm:"many2many:user_badges;" json:"badges,omitempty"`
	}

	Role struct {
		GormForkedModel
		Name        string       `gorm:"unique;not null" json:"name"`
		ColorCode   string       `gorm:"size:6;not null" json:"color_code"`
		Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	}

	Permission struct {
		GormForkedModel
		Name   string  `gorm:"size:255;unique;not null" json:"name"`
		UserID *uint64 `json:"user_id"`
	}

	Category struct {
		GormForkedModel
		Name        string  `gorm:"size:255;unique;not null" json:"name"`
		Description *string `json:"description"`
	}

	Post struct {
		GormForkedModel
		Title      string     `gorm:"size:255;not null" json:"title"`
		Content    string     `json:"content"`
		UserID     uint64     `gorm:"not null;index" json:"user_id"`
		CategoryID *uint64    `gorm:"index" json:"category_id"`
		ApprovedBy *uint64    `json:"approved_by"`
		ApprovedAt *time.Time `json:"approved_at"`
	}

	PostHistory struct {
		GormForkedModel
		PostID  uint64 `gorm:"not null;index" json:"post_id"`
		UserID  uint64 `gorm:"not null" json:"user_id"`
		Title   string `gorm:"size:255;not null" json:"title"`
		Content string `json:"content"`
	}

	PostVote struct {
		GormForkedModel
		PostID uint64 `gorm:"not null;index" json:"post_id"`
		UserID uint64 `gorm:"not null;index" json:"user_id"`
		Vote   int    `gorm:"not null" json:"vote"`
	}

	Bookmark struct {
		GormForkedModel
		UserID     uint64  `gorm:"not null;index" json:"user_id"`
		IsPost     bool    `gorm:"not null;default:false" json:"is_post"`
		PostID     *uint64 `gorm:"index" json:"post_id"`
		IsCategory bool    `gorm:"not null;default:false" json:"is_category"`
		CategoryID *uint64 `gorm:"index" json:"category_id"`
	}

	Badge struct {
		GormForkedModel
		Name        string  `gorm:"size:255;unique;not null" json:"name"`
		Description *string `json:"description"`
	}

	Activity struct {
		ID         uint64    `gorm:"primarykey" json:"id"`
		CreatedAt  time.Time `json:"created_at"`
		IssuerType int       `gorm:"not null" json:"issuer_type"`
		IssuerID   uint64    `gorm:"not null;index" json:"issuer_id"`
		Short      string    `gorm:"not null" json:"short"`
		Details    string    `json:"details"`
		Attributes string    `json:"attributes"`
	}
)

// AllModels is the auto-migration order; referenced tables come first.
func AllModels() []interface{} {
	return []interface{}{
		&Permission{},
		&Role{},
		&Badge{},
		&User{},
		&Category{},
		&Post{},
		&PostHistory{},
		&PostVote{},
		&Bookmark{},
		&Activity{},
	}
}
