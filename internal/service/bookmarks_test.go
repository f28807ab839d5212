package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/validate"
)

func boolPtr(b validate.Bool) *validate.Bool { return &b }

func ids(bookmarks []db.Bookmark) []uint64 {
	out := make([]uint64, len(bookmarks))
	for i := range bookmarks {
		out[i] = bookmarks[i].ID
	}
	return out
}

func TestBookmarkCreate_Validation(t *testing.T) {
	ctx := context.Background()
	s, gdb := newTestService(t)
	user := createUser(t, gdb, db.RoleUser)
	post := createPost(t, gdb, user, "p", "c")
	category := createCategory(t, gdb, "c")
	missing := uint64(999)

	cases := []struct {
		name   string
		req    BookmarkReq
		fields []string
	}{
		{"nothing", BookmarkReq{}, []string{"post_id", "category_id"}},
		{"both ids", BookmarkReq{PostID: &post.ID, CategoryID: &category.ID}, []string{"category_id"}},
		{"post flag without id", BookmarkReq{IsPost: boolPtr(true)}, []string{"post_id"}},
		{"category flag without id", BookmarkReq{IsCategory: boolPtr(true)}, []string{"category_id"}},
		{"id against flag", BookmarkReq{IsPost: boolPtr(false), PostID: &post.ID}, []string{"post_id"}},
		{"unknown post", BookmarkReq{IsPost: boolPtr(true), PostID: &missing}, []string{"post_id"}},
		{"unknown category", BookmarkReq{CategoryID: &missing}, []string{"category_id"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := s.BookmarkCreate(ctx, user, c.req)
			verr, ok := err.(*ValidationError)
			require.True(t, ok, "got %v", err)
			for _, f := range c.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}

	t.Run("post bookmark", func(t *testing.T) {
		b, err := s.BookmarkCreate(ctx, user, BookmarkReq{IsPost: boolPtr(true), PostID: &post.ID})
		require.NoError(t, err)
		assert.True(t, b.IsPost)
		assert.False(t, b.IsCategory)
		assert.Nil(t, b.CategoryID)
		assert.Equal(t, user.ID, b.UserID)
	})

	t.Run("category bookmark with inferred flag", func(t *testing.T) {
		b, err := s.BookmarkCreate(ctx, user, BookmarkReq{CategoryID: &category.ID})
		require.NoError(t, err)
		assert.True(t, b.IsCategory)
		assert.False(t, b.IsPost)
	})
}

func TestBookmarkUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s, gdb := newTestService(t)
	owner := createUser(t, gdb, db.RoleUser)
	other := createUser(t, gdb, db.RoleAdministrator)
	post := createPost(t, gdb, owner, "p", "c")
	category := createCategory(t, gdb, "c")

	b, err := s.BookmarkCreate(ctx, owner, BookmarkReq{PostID: &post.ID})
	require.NoError(t, err)

	_, err = s.BookmarkUpdate(ctx, other, b.ID, BookmarkReq{CategoryID: &category.ID})
	assert.Equal(t, ErrAccessDenied, err)

	updated, err := s.BookmarkUpdate(ctx, owner, b.ID, BookmarkReq{CategoryID: &category.ID})
	require.NoError(t, err)
	assert.Nil(t, updated.PostID)
	assert.False(t, updated.IsPost)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, category.ID, *updated.CategoryID)

	_, err = s.BookmarkUpdate(ctx, owner, b.ID, BookmarkReq{IsCategory: boolPtr(false)})
	_, ok := err.(*ValidationError)
	assert.True(t, ok, "a bookmark cannot lose its only target")

	assert.Equal(t, ErrAccessDenied, s.BookmarkDelete(ctx, other, b.ID))
	require.NoError(t, s.BookmarkDelete(ctx, owner, b.ID))

	list, _, err := s.BookmarkListByCategory(ctx, category.ID, DefaultBookmarkList())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookmarkList(t *testing.T) {
	ctx := context.Background()
	s, gdb := newTestService(t)
	author := createUser(t, gdb, db.RoleUser)
	post := createPost(t, gdb, author, "p", "c")
	otherPost := createPost(t, gdb, author, "o", "c")

	users := make([]*db.User, 5)
	created := make([]uint64, 5)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range users {
		users[i] = createUser(t, gdb, db.RoleUser)
		b, err := s.BookmarkCreate(ctx, users[i], BookmarkReq{PostID: &post.ID})
		require.NoError(t, err)
		created[i] = b.ID
	}
	// bookmark 0 is the most recently touched, then 4, 3, 2, 1
	for i, id := range created {
		at := base.Add(time.Duration(i) * time.Hour)
		if i == 0 {
			at = base.Add(24 * time.Hour)
		}
		require.NoError(t, gdb.Model(&db.Bookmark{}).Where("id = ?", id).UpdateColumn("updated_at", at).Error)
	}
	_, err := s.BookmarkCreate(ctx, author, BookmarkReq{PostID: &otherPost.ID})
	require.NoError(t, err)

	t.Run("default listing", func(t *testing.T) {
		got, meta, err := s.BookmarkListByPost(ctx, post.ID, DefaultBookmarkList())
		require.NoError(t, err)
		assert.Equal(t, created, ids(got))
		assert.Equal(t, &PageMeta{CurrentPage: 1, PerPage: 15, Total: 5, LastPage: 1}, meta)
	})

	t.Run("pagination", func(t *testing.T) {
		req := DefaultBookmarkList()
		req.PerPage = 2
		req.Page = 2
		got, meta, err := s.BookmarkListByPost(ctx, post.ID, req)
		require.NoError(t, err)
		assert.Equal(t, created[2:4], ids(got))
		assert.Equal(t, 3, meta.LastPage)
	})

	t.Run("no pagination", func(t *testing.T) {
		req := DefaultBookmarkList()
		req.PerPage = 1
		req.Paginate = false
		got, meta, err := s.BookmarkListByPost(ctx, post.ID, req)
		require.NoError(t, err)
		assert.Len(t, got, 5)
		assert.Nil(t, meta)
	})

	t.Run("sort descending", func(t *testing.T) {
		req := DefaultBookmarkList()
		req.SortColumn = "id"
		req.SortMethod = "desc"
		got, _, err := s.BookmarkListByPost(ctx, post.ID, req)
		require.NoError(t, err)
		assert.Equal(t, []uint64{created[4], created[3], created[2], created[1], created[0]}, ids(got))
	})

	t.Run("legacy sort flag", func(t *testing.T) {
		req := DefaultBookmarkList()
		req.SortColumn = "updated_at"
		req.SortMethod = "3"
		got, _, err := s.BookmarkListByPost(ctx, post.ID, req)
		require.NoError(t, err)
		assert.Equal(t, []uint64{created[0], created[4], created[3], created[2], created[1]}, ids(got))
	})

	t.Run("recent truncates before sorting", func(t *testing.T) {
		req := DefaultBookmarkList()
		req.Recent = 3
		req.SortColumn = "id"
		req.SortMethod = "asc"
		got, meta, err := s.BookmarkListByPost(ctx, post.ID, req)
		require.NoError(t, err)
		assert.Equal(t, []uint64{created[0], created[3], created[4]}, ids(got))
		assert.Equal(t, int64(3), meta.Total)
	})

	t.Run("sort validation", func(t *testing.T) {
		req := DefaultBookmarkList()
		req.SortColumn = "deleted_at; DROP TABLE bookmarks"
		req.SortMethod = "asc"
		_, _, err := s.BookmarkListByPost(ctx, post.ID, req)
		verr, ok := err.(*ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Contains(t, verr.Fields, "sort[column]")

		req = DefaultBookmarkList()
		req.SortColumn = "id"
		_, _, err = s.BookmarkListByPost(ctx, post.ID, req)
		verr, ok = err.(*ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Contains(t, verr.Fields, "sort[method]")

		req = DefaultBookmarkList()
		req.Recent = -1
		_, _, err = s.BookmarkListByPost(ctx, post.ID, req)
		_, ok = err.(*ValidationError)
		assert.True(t, ok)
	})

	t.Run("soft-deleted bookmarks are hidden", func(t *testing.T) {
		require.NoError(t, s.BookmarkDelete(ctx, users[1], created[1]))
		got, meta, err := s.BookmarkListByPost(ctx, post.ID, DefaultBookmarkList())
		require.NoError(t, err)
		assert.NotContains(t, ids(got), created[1])
		assert.Equal(t, int64(4), meta.Total)
	})
}
