package service

import (
	"context"
	"encoding/json"
	"math"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/auth"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/config"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/validate"
)

const (
	defaultPerPage = 15
	bcryptCost     = 14
)

var Module = fx.Provide(
	NewIssuer,
	NewGeneral,
)

type (
	General struct {
		db         *gorm.DB
		logger     *zap.SugaredLogger
		validate   *validate.Validator
		issuer     *auth.Issuer
		bcryptCost int
	}

	Option func(*General)

	// PageReq is the pagination part of listing queries.
	PageReq struct {
		PerPage int `json:"per_page" query:"per_page" validate:"min=1,max=100"`
		Page    int `json:"page" query:"page" validate:"min=1"`
	}

	PageMeta struct {
		CurrentPage int   `json:"current_page"`
		PerPage     int   `json:"per_page"`
		Total       int64 `json:"total"`
		LastPage    int   `json:"last_page"`
	}
)

func NewIssuer(cfg *config.Config) *auth.Issuer {
	return auth.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
}

func NewGeneral(db *gorm.DB, l *zap.SugaredLogger, issuer *auth.Issuer, opts ...Option) *General {
	s := &General{
		db:         db,
		logger:     l,
		validate:   validate.New(),
		issuer:     issuer,
		bcryptCost: bcryptCost,
	}
	s.validate.RegisterStructValidation(bookmarkStructLevel, BookmarkReq{})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *General) {
		s.bcryptCost = cost
	}
}

// DefaultPage is the pagination used when the caller sends nothing.
func DefaultPage() PageReq {
	return PageReq{PerPage: defaultPerPage, Page: 1}
}

// Validate runs the struct rules shared by the service and the transport.
func (s *General) Validate(v interface{}) error {
	return s.validate.Struct(v)
}

// paginate counts q and loads the requested page of it into out. Order and
// preloads are applied to the page query only.
func (s *General) paginate(q *gorm.DB, p PageReq, order string, out interface{}, preloads ...string) (*PageMeta, error) {
	if err := s.validate.Struct(&p); err != nil {
		return nil, err
	}

	var total int64
	if res := q.Session(&gorm.Session{}).Count(&total); res.Error != nil {
		return nil, errors.Wrap(res.Error, "count")
	}
	find := q.Order(order)
	for _, preload := range preloads {
		find = find.Preload(preload)
	}
	if res := find.Offset((p.Page - 1) * p.PerPage).Limit(p.PerPage).Find(out); res.Error != nil {
		return nil, errors.Wrap(res.Error, "find page")
	}
	return newPageMeta(p, total), nil
}

func newPageMeta(p PageReq, total int64) *PageMeta {
	last := int(math.Ceil(float64(total) / float64(p.PerPage)))
	if last < 1 {
		last = 1
	}
	return &PageMeta{
		CurrentPage: p.Page,
		PerPage:     p.PerPage,
		Total:       total,
		LastPage:    last,
	}
}

// HasPermission reports whether the user's role is granted the named,
// non-deleted permission.
func (s *General) HasPermission(ctx context.Context, user *db.User, name string) (bool, error) {
	return hasPermission(s.db.WithContext(ctx), user, name)
}

func hasPermission(tx *gorm.DB, user *db.User, name string) (bool, error) {
	sql, args, err := squirrel.
		Select("COUNT(*)").From("permissions p").
		Join("role_permissions rp ON rp.permission_id = p.id").
		Where(squirrel.Eq{
			"rp.role_id":   user.RoleID,
			"p.name":       name,
			"p.deleted_at": nil,
		}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "build sql")
	}

	var n int64
	if err := tx.Raw(sql, args...).Row().Scan(&n); err != nil {
		return false, errors.Wrap(err, "scan")
	}
	return n > 0, nil
}

func requirePermission(tx *gorm.DB, user *db.User, name string) error {
	ok, err := hasPermission(tx, user, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

func (s *General) recordActivity(tx *gorm.DB, user *db.User, short, details string, attributes map[string]interface{}) error {
	attrs := []byte("{}")
	if len(attributes) != 0 {
		var err error
		if attrs, err = json.Marshal(attributes); err != nil {
			return errors.Wrap(err, "marshal activity attributes")
		}
	}
	res := tx.Create(&db.Activity{
		IssuerType: db.IssuerTypeUser,
		IssuerID:   user.ID,
		Short:      short,
		Details:    details,
		Attributes: string(attrs),
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "create activity")
	}
	return nil
}

func (s *General) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), s.bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *General) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}

func first(tx *gorm.DB, out interface{}, id uint64, resource string) error {
	res := tx.First(out, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return notFound(resource)
		}
		return errors.Wrapf(res.Error, "get %s", resource)
	}
	return nil
}

// taken reports whether a row with column = value exists, soft-deleted rows
// included, ignoring the row with id exceptID.
func taken(tx *gorm.DB, model interface{}, column, value string, exceptID uint64) (bool, error) {
	var n int64
	q := tx.Unscoped().Model(model).Where(column+" = ?", value)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if res := q.Count(&n); res.Error != nil {
		return false, errors.Wrap(res.Error, "check unique")
	}
	return n > 0, nil
}
