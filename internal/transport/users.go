package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
)

type (
	TokenResp struct {
		Token string `json:"token"`
	}

	RegisterResp struct {
		User  *db.User `json:"user"`
		Token string   `json:"token"`
	}
)

func (s *HTTPServer) Register(c echo.Context) error {
	req := service.RegisterReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	user, token, err := s.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusCreated, RegisterResp{User: user, Token: token}, "User registered successfully.")
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := service.LoginReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	token, err := s.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, TokenResp{Token: token}, "User logged in successfully.")
}

func (s *HTTPServer) Logout(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.svc.Logout(c.Request().Context(), user); err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, []interface{}{}, "User logged out successfully.")
}

func (s *HTTPServer) VerifyEmail(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.VerifyEmailReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	user, err = s.svc.VerifyEmail(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, user, "Email verified successfully.")
}

func (s *HTTPServer) UserMe(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	user, err = s.svc.UserGet(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, user, "User retrieved successfully.")
}

func (s *HTTPServer) UserList(c echo.Context) error {
	page := service.DefaultPage()
	if err := bindPage(c, &page); err != nil {
		return err
	}

	users, meta, err := s.svc.UserList(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return sendList(c, users, meta, "Successfully retrieved users", nil)
}

func (s *HTTPServer) UserGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	user, err := s.svc.UserGet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, user, "User retrieved successfully.")
}

func (s *HTTPServer) UserDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.svc.UserDelete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, []interface{}{}, "User soft-deleted successfully.")
}

func (s *HTTPServer) UserAssignRole(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.UserRoleReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	updated, err := s.svc.UserAssignRole(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, updated, "Role assigned successfully.")
}

func (s *HTTPServer) UserAwardBadge(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.UserBadgeReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	updated, err := s.svc.UserAwardBadge(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, updated, "Badge awarded successfully.")
}

func (s *HTTPServer) UserActivities(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	page := service.DefaultPage()
	if err := bindPage(c, &page); err != nil {
		return err
	}

	activities, meta, err := s.svc.UserActivities(c.Request().Context(), user, id, page)
	if err != nil {
		return err
	}
	return sendList(c, activities, meta, "Successfully retrieved activities", nil)
}
