package db

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	RoleUser          = "User"
	RoleModerator     = "Moderator"
	RoleAdministrator = "Administrator"
)

const (
	PermPostsUpdate       = "posts_update"
	PermPostsApprove      = "posts_approve"
	PermPostsDelete       = "posts_delete"
	PermPermissionsManage = "permissions_manage"
	PermRolesManage       = "roles_manage"
	PermUsersManage       = "users_manage"
	PermCategoriesManage  = "categories_manage"
	PermBadgesManage      = "badges_manage"
)

var seedRoles = []Role{
	{Name: RoleUser, ColorCode: "242424"},
	{Name: RoleModerator, ColorCode: "0d8028"},
	{Name: RoleAdministrator, ColorCode: "800d0d"},
}

var seedPermissions = []string{
	PermPostsUpdate,
	PermPostsApprove,
	PermPostsDelete,
	PermPermissionsManage,
	PermRolesManage,
	PermUsersManage,
	PermCategoriesManage,
	PermBadgesManage,
}

var seedGrants = map[string][]string{
	RoleModerator:     {PermPostsUpdate, PermPostsApprove, PermPostsDelete},
	RoleAdministrator: seedPermissions,
}

// Seed inserts the default roles, the permission catalogue and the role
// grants. Running it again leaves existing rows untouched, soft-deleted ones
// included.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		perms := make(map[string]*Permission, len(seedPermissions))
		var errs error
		for _, name := range seedPermissions {
			p := Permission{}
			res := tx.Unscoped().Where(Permission{Name: name}).FirstOrCreate(&p, Permission{Name: name})
			if res.Error != nil {
				errs = multierr.Append(errs, errors.Wrapf(res.Error, "permission %s", name))
				continue
			}
			perms[name] = &p
		}

		for _, seed := range seedRoles {
			r := Role{}
			res := tx.Unscoped().Where(Role{Name: seed.Name}).Attrs(Role{ColorCode: seed.ColorCode}).FirstOrCreate(&r)
			if res.Error != nil {
				errs = multierr.Append(errs, errors.Wrapf(res.Error, "role %s", seed.Name))
				continue
			}
			// deleted roles stay deleted
			if r.DeletedAt.Valid {
				continue
			}

			grants := make([]Permission, 0, len(seedGrants[seed.Name]))
			for _, name := range seedGrants[seed.Name] {
				if p, ok := perms[name]; ok && !p.DeletedAt.Valid {
					grants = append(grants, *p)
				}
			}
			if len(grants) == 0 {
				continue
			}
			if err := tx.Model(&r).Association("Permissions").Append(grants); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "grant %s", seed.Name))
			}
		}
		return errs
	})
}
