package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
)

type PostUpdateResp struct {
	Post        *db.Post        `json:"post"`
	HistoryPost *db.PostHistory `json:"history_post"`
}

func (s *HTTPServer) PostList(c echo.Context) error {
	req := service.PostListReq{PageReq: service.DefaultPage()}
	err := BindQuery(c, func(b *echo.ValueBinder) {
		b.Int("per_page", &req.PerPage).Int("page", &req.Page).Uint64("category_id", &req.CategoryID)
	})
	if err != nil {
		return err
	}

	posts, meta, err := s.svc.PostList(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return sendList(c, posts, meta, "Successfully retrieved posts", nil)
}

func (s *HTTPServer) PostGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	post, err := s.svc.PostGet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, post, "Post retrieved successfully.")
}

func (s *HTTPServer) PostCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.PostCreateReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	post, err := s.svc.PostCreate(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusCreated, post, "Post created successfully.")
}

func (s *HTTPServer) PostUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.svc.PostAuthorizeUpdate(c.Request().Context(), user, id); err != nil {
		return err
	}

	req := service.PostUpdateReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	post, history, err := s.svc.PostUpdate(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, PostUpdateResp{Post: post, HistoryPost: history}, "Post updated successfully.")
}

func (s *HTTPServer) PostDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.svc.PostDelete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, []interface{}{}, "Post soft-deleted successfully.")
}

func (s *HTTPServer) PostHistory(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	history, err := s.svc.PostHistoryList(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, history, "Successfully retrieved post history")
}

func (s *HTTPServer) PostVotes(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	tally, err := s.svc.PostVotes(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, tally, "Successfully retrieved votes")
}

func (s *HTTPServer) PostVote(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.VoteReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	tally, err := s.svc.PostVote(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, tally, "Vote saved successfully.")
}
