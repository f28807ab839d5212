package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/validate"
)

type (
	PostCreateReq struct {
		Title      string  `json:"title" validate:"required,max=255"`
		Content    *string `json:"content"`
		CategoryID *uint64 `json:"category_id"`
	}

	PostUpdateReq struct {
		Title   string        `json:"title" validate:"required,max=255"`
		Content *string       `json:"content"`
		Approve validate.Bool `json:"approve"`
	}

	PostListReq struct {
		PageReq
		CategoryID uint64 `json:"category_id" query:"category_id"`
	}
)

func (s *General) PostList(ctx context.Context, req PostListReq) ([]db.Post, *PageMeta, error) {
	posts := make([]db.Post, 0)
	q := s.db.WithContext(ctx).Model(&db.Post{})
	if req.CategoryID != 0 {
		q = q.Where("category_id = ?", req.CategoryID)
	}
	meta, err := s.paginate(q, req.PageReq, "created_at DESC, id DESC", &posts)
	if err != nil {
		return nil, nil, err
	}
	return posts, meta, nil
}

func (s *General) PostGet(ctx context.Context, id uint64) (*db.Post, error) {
	post := db.Post{}
	if err := first(s.db.WithContext(ctx), &post, id, "Post"); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *General) PostCreate(ctx context.Context, actor *db.User, req PostCreateReq) (*db.Post, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	post := db.Post{
		Title:      req.Title,
		Content:    deref(req.Content),
		UserID:     actor.ID,
		CategoryID: req.CategoryID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.CategoryID != nil {
			if err := first(tx, &db.Category{}, *req.CategoryID, "Category"); err != nil {
				if errors.Is(err, ErrNotFound) {
					return invalid("category_id", "exists")
				}
				return err
			}
		}
		if res := tx.Create(&post); res.Error != nil {
			return errors.Wrap(res.Error, "create post")
		}
		return s.recordActivity(tx, actor, "post_created", post.Title, map[string]interface{}{"post_id": post.ID})
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// PostUpdate replaces title and content of a post. The author or a holder of
// posts_update may edit. The previous title and content are kept as a
// PostHistory row. Approval is stamped only when requested and the caller
// holds posts_approve.
func (s *General) PostUpdate(ctx context.Context, actor *db.User, id uint64, req PostUpdateReq) (*db.Post, *db.PostHistory, error) {
	post := db.Post{}
	history := db.PostHistory{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := authorizePostUpdate(tx, actor, &post, id); err != nil {
			return err
		}

		if err := s.validate.Struct(&req); err != nil {
			return err
		}

		history = db.PostHistory{
			PostID:  post.ID,
			UserID:  post.UserID,
			Title:   post.Title,
			Content: post.Content,
		}
		if res := tx.Create(&history); res.Error != nil {
			return errors.Wrap(res.Error, "create post history")
		}

		post.Title = req.Title
		post.Content = deref(req.Content)

		approved := false
		if req.Approve {
			canApprove, err := hasPermission(tx, actor, db.PermPostsApprove)
			if err != nil {
				return err
			}
			if canApprove {
				approver := actor.ID
				now := time.Now()
				post.ApprovedBy = &approver
				post.ApprovedAt = &now
				approved = true
			}
		}

		if res := tx.Save(&post); res.Error != nil {
			return errors.Wrap(res.Error, "update post")
		}

		attrs := map[string]interface{}{"post_id": post.ID, "history_id": history.ID}
		if err := s.recordActivity(tx, actor, "post_updated", post.Title, attrs); err != nil {
			return err
		}
		if approved {
			return s.recordActivity(tx, actor, "post_approved", post.Title, map[string]interface{}{"post_id": post.ID})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &post, &history, nil
}

// PostAuthorizeUpdate checks that the post exists and actor may edit it.
func (s *General) PostAuthorizeUpdate(ctx context.Context, actor *db.User, id uint64) error {
	post := db.Post{}
	return authorizePostUpdate(s.db.WithContext(ctx), actor, &post, id)
}

func authorizePostUpdate(tx *gorm.DB, actor *db.User, post *db.Post, id uint64) error {
	if err := first(tx, post, id, "Post"); err != nil {
		return err
	}

	canUpdate, err := hasPermission(tx, actor, db.PermPostsUpdate)
	if err != nil {
		return err
	}
	if !canUpdate && post.UserID != actor.ID {
		return ErrAccessDenied
	}
	return nil
}

// PostDelete soft-deletes a post. The author or a holder of posts_delete may
// delete.
func (s *General) PostDelete(ctx context.Context, actor *db.User, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post := db.Post{}
		if err := first(tx, &post, id, "Post"); err != nil {
			return err
		}
		if post.UserID != actor.ID {
			if err := requirePermission(tx, actor, db.PermPostsDelete); err != nil {
				return err
			}
		}
		if res := tx.Delete(&post); res.Error != nil {
			return errors.Wrap(res.Error, "delete post")
		}
		return s.recordActivity(tx, actor, "post_deleted", post.Title, map[string]interface{}{"post_id": post.ID})
	})
}

// PostHistoryList returns the snapshots of a post, newest first.
func (s *General) PostHistoryList(ctx context.Context, id uint64) ([]db.PostHistory, error) {
	tx := s.db.WithContext(ctx)
	if err := first(tx, &db.Post{}, id, "Post"); err != nil {
		return nil, err
	}

	history := make([]db.PostHistory, 0)
	if res := tx.Where("post_id = ?", id).Order("id DESC").Find(&history); res.Error != nil {
		return nil, errors.Wrap(res.Error, "list post history")
	}
	return history, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
