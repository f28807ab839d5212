package service

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/go-playground/validator"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/validate"
)

var bookmarkSortColumns = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"user_id":     true,
	"post_id":     true,
	"category_id": true,
}

var bookmarkSortMethods = map[string]string{
	"asc":  "ASC",
	"desc": "DESC",
	"4":    "ASC",
	"3":    "DESC",
}

type (
	// BookmarkReq points a bookmark at exactly one post or one category. The
	// is_post / is_category flags are optional but must agree with the ids.
	BookmarkReq struct {
		IsPost     *validate.Bool `json:"is_post"`
		PostID     *uint64        `json:"post_id"`
		IsCategory *validate.Bool `json:"is_category"`
		CategoryID *uint64        `json:"category_id"`
	}

	// BookmarkListReq holds the listing options. Sort method is asc or desc,
	// or the legacy sort flags 4 (ascending) and 3 (descending).
	BookmarkListReq struct {
		PageReq
		Paginate   bool   `query:"paginate"`
		SortColumn string `query:"sort[column]" validate:"required_with=SortMethod"`
		SortMethod string `query:"sort[method]" validate:"required_with=SortColumn"`
		Recent     int    `query:"recent" validate:"min=0"`
	}
)

// DefaultBookmarkList is the listing used when the caller sends nothing.
func DefaultBookmarkList() BookmarkListReq {
	return BookmarkListReq{PageReq: DefaultPage(), Paginate: true}
}

func bookmarkStructLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(BookmarkReq)
	hasPost, hasCategory := req.PostID != nil, req.CategoryID != nil

	if req.IsPost != nil && bool(*req.IsPost) && !hasPost {
		sl.ReportError(req.PostID, "post_id", "PostID", "required_if", "IsPost")
	}
	if req.IsCategory != nil && bool(*req.IsCategory) && !hasCategory {
		sl.ReportError(req.CategoryID, "category_id", "CategoryID", "required_if", "IsCategory")
	}
	if req.IsPost != nil && !bool(*req.IsPost) && hasPost {
		sl.ReportError(req.PostID, "post_id", "PostID", "prohibited", "")
	}
	if req.IsCategory != nil && !bool(*req.IsCategory) && hasCategory {
		sl.ReportError(req.CategoryID, "category_id", "CategoryID", "prohibited", "")
	}

	switch {
	case hasPost && hasCategory:
		sl.ReportError(req.CategoryID, "category_id", "CategoryID", "excluded_with", "PostID")
	case !hasPost && !hasCategory && !flagged(req.IsPost) && !flagged(req.IsCategory):
		sl.ReportError(req.PostID, "post_id", "PostID", "required_without", "CategoryID")
		sl.ReportError(req.CategoryID, "category_id", "CategoryID", "required_without", "PostID")
	}
}

func flagged(b *validate.Bool) bool {
	return b != nil && bool(*b)
}

func (s *General) BookmarkCreate(ctx context.Context, actor *db.User, req BookmarkReq) (*db.Bookmark, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	model := db.Bookmark{UserID: actor.ID}
	applyBookmarkTarget(&model, req)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bookmarkTargetExists(tx, &model); err != nil {
			return err
		}
		if res := tx.Create(&model); res.Error != nil {
			return errors.Wrap(res.Error, "create bookmark")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// BookmarkUpdate retargets a bookmark. Fields left out keep their current
// value; the merged bookmark must still point at exactly one target.
func (s *General) BookmarkUpdate(ctx context.Context, actor *db.User, id uint64, req BookmarkReq) (*db.Bookmark, error) {
	model := db.Bookmark{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &model, id, "Bookmark"); err != nil {
			return err
		}
		if model.UserID != actor.ID {
			return ErrAccessDenied
		}

		merged := mergeBookmarkReq(model, req)
		if err := s.validate.Struct(&merged); err != nil {
			return err
		}
		applyBookmarkTarget(&model, merged)

		if err := bookmarkTargetExists(tx, &model); err != nil {
			return err
		}
		if res := tx.Save(&model); res.Error != nil {
			return errors.Wrap(res.Error, "update bookmark")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func (s *General) BookmarkDelete(ctx context.Context, actor *db.User, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := db.Bookmark{}
		if err := first(tx, &model, id, "Bookmark"); err != nil {
			return err
		}
		if model.UserID != actor.ID {
			return ErrAccessDenied
		}
		if res := tx.Delete(&model); res.Error != nil {
			return errors.Wrap(res.Error, "delete bookmark")
		}
		return nil
	})
}

func (s *General) BookmarkListByPost(ctx context.Context, postID uint64, req BookmarkListReq) ([]db.Bookmark, *PageMeta, error) {
	return s.bookmarkList(ctx, "post_id", postID, req)
}

func (s *General) BookmarkListByCategory(ctx context.Context, categoryID uint64, req BookmarkListReq) ([]db.Bookmark, *PageMeta, error) {
	return s.bookmarkList(ctx, "category_id", categoryID, req)
}

// bookmarkList narrows to the `recent` most recently updated rows first, then
// sorts and pages within them. Without pagination the meta is nil.
func (s *General) bookmarkList(ctx context.Context, column string, id uint64, req BookmarkListReq) ([]db.Bookmark, *PageMeta, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, nil, err
	}
	order, err := bookmarkOrder(req)
	if err != nil {
		return nil, nil, err
	}

	inner := squirrel.
		Select("id", "user_id", "post_id", "category_id", "created_at", "updated_at").
		From("bookmarks").
		Where(squirrel.Eq{
			column:       id,
			"deleted_at": nil,
		})
	if req.Recent > 0 {
		inner = inner.OrderBy("updated_at DESC", "id DESC").Limit(uint64(req.Recent))
	}

	page := squirrel.Select("b.id").FromSelect(inner, "b").OrderBy(order...)
	if req.Paginate {
		page = page.
			Limit(uint64(req.PerPage)).
			Offset(uint64((req.Page - 1) * req.PerPage))
	}

	tx := s.db.WithContext(ctx)

	var meta *PageMeta
	if req.Paginate {
		sql, args, err := squirrel.Select("COUNT(*)").FromSelect(inner, "b").ToSql()
		if err != nil {
			return nil, nil, errors.Wrap(err, "build count sql")
		}
		var total int64
		if err := tx.Raw(sql, args...).Row().Scan(&total); err != nil {
			return nil, nil, errors.Wrap(err, "count bookmarks")
		}
		meta = newPageMeta(req.PageReq, total)
	}

	sql, args, err := page.ToSql()
	if err != nil {
		return nil, nil, errors.Wrap(err, "build sql")
	}
	ids, err := scanIDs(tx, sql, args)
	if err != nil {
		return nil, nil, err
	}

	bookmarks, err := loadBookmarks(tx, ids)
	if err != nil {
		return nil, nil, err
	}
	return bookmarks, meta, nil
}

func bookmarkOrder(req BookmarkListReq) ([]string, error) {
	if req.SortColumn == "" {
		return []string{"b.id ASC"}, nil
	}

	verr := &ValidationError{}
	column := strings.ToLower(req.SortColumn)
	if !bookmarkSortColumns[column] {
		verr.Add("sort[column]", "The selected sort[column] is invalid.")
	}
	method, ok := bookmarkSortMethods[strings.ToLower(req.SortMethod)]
	if !ok {
		verr.Add("sort[method]", "The selected sort[method] is invalid.")
	}
	if len(verr.Fields) != 0 {
		return nil, verr
	}

	order := []string{"b." + column + " " + method}
	if column != "id" {
		order = append(order, "b.id ASC")
	}
	return order, nil
}

func scanIDs(tx *gorm.DB, sql string, args []interface{}) ([]uint64, error) {
	rows, err := tx.Raw(sql, args...).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "query ids")
	}
	defer rows.Close()

	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "iterate ids")
}

// loadBookmarks fetches the bookmarks and returns them in ids order.
func loadBookmarks(tx *gorm.DB, ids []uint64) ([]db.Bookmark, error) {
	out := make([]db.Bookmark, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	found := make([]db.Bookmark, 0, len(ids))
	if res := tx.Where("id IN ?", ids).Find(&found); res.Error != nil {
		return nil, errors.Wrap(res.Error, "load bookmarks")
	}
	byID := make(map[uint64]db.Bookmark, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func mergeBookmarkReq(current db.Bookmark, req BookmarkReq) BookmarkReq {
	merged := BookmarkReq{PostID: current.PostID, CategoryID: current.CategoryID}
	if req.IsPost != nil {
		merged.IsPost = req.IsPost
		if !*req.IsPost {
			merged.PostID = nil
		}
	}
	if req.IsCategory != nil {
		merged.IsCategory = req.IsCategory
		if !*req.IsCategory {
			merged.CategoryID = nil
		}
	}
	if req.PostID != nil {
		merged.PostID = req.PostID
		if req.CategoryID == nil && req.IsCategory == nil {
			merged.CategoryID = nil
		}
	}
	if req.CategoryID != nil {
		merged.CategoryID = req.CategoryID
		if req.PostID == nil && req.IsPost == nil {
			merged.PostID = nil
		}
	}
	return merged
}

func applyBookmarkTarget(model *db.Bookmark, req BookmarkReq) {
	model.PostID = req.PostID
	model.IsPost = req.PostID != nil
	model.CategoryID = req.CategoryID
	model.IsCategory = req.CategoryID != nil
}

func bookmarkTargetExists(tx *gorm.DB, model *db.Bookmark) error {
	if model.PostID != nil {
		if err := first(tx, &db.Post{}, *model.PostID, "Post"); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("post_id", "exists")
			}
			return err
		}
	}
	if model.CategoryID != nil {
		if err := first(tx, &db.Category{}, *model.CategoryID, "Category"); err != nil {
			if errors.Is(err, ErrNotFound) {
				return invalid("category_id", "exists")
			}
			return err
		}
	}
	return nil
}
