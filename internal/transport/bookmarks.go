package transport

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
)

type bookmarkLister func(ctx context.Context, id uint64, req service.BookmarkListReq) ([]db.Bookmark, *service.PageMeta, error)

func (s *HTTPServer) BookmarkCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.BookmarkReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	bookmark, err := s.svc.BookmarkCreate(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusCreated, bookmark, "Bookmark created successfully.")
}

func (s *HTTPServer) BookmarkUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.BookmarkReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	bookmark, err := s.svc.BookmarkUpdate(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, bookmark, "Bookmark updated successfully.")
}

func (s *HTTPServer) BookmarkDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.svc.BookmarkDelete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, []interface{}{}, "Bookmark soft-deleted successfully.")
}

func (s *HTTPServer) BookmarkListByPost(c echo.Context) error {
	return s.bookmarkList(c, s.svc.BookmarkListByPost)
}

func (s *HTTPServer) BookmarkListByCategory(c echo.Context) error {
	return s.bookmarkList(c, s.svc.BookmarkListByCategory)
}

func (s *HTTPServer) bookmarkList(c echo.Context, list bookmarkLister) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := service.DefaultBookmarkList()
	err = BindQuery(c, func(b *echo.ValueBinder) {
		b.Int("per_page", &req.PerPage).
			Int("page", &req.Page).
			Bool("paginate", &req.Paginate).
			String("sort[column]", &req.SortColumn).
			String("sort[method]", &req.SortMethod).
			Int("recent", &req.Recent)
	})
	if err != nil {
		return err
	}

	bookmarks, meta, err := list(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return sendList(c, bookmarks, meta, "Successfully retrieved bookmarks", additionalParams(c))
}
