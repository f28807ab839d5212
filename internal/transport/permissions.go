package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
)

func (s *HTTPServer) PermissionList(c echo.Context) error {
	page := service.DefaultPage()
	if err := bindPage(c, &page); err != nil {
		return err
	}

	permissions, meta, err := s.svc.PermissionList(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return sendList(c, permissions, meta, "Successfully retrieved permissions", nil)
}

func (s *HTTPServer) PermissionGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	withTrashed := false
	if err := BindQuery(c, func(b *echo.ValueBinder) { b.Bool("with_trashed", &withTrashed) }); err != nil {
		return err
	}

	permission, err := s.svc.PermissionGet(c.Request().Context(), id, withTrashed)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, permission, "Permission retrieved successfully.")
}

func (s *HTTPServer) PermissionCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.PermissionReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	permission, err := s.svc.PermissionCreate(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusCreated, permission, "Permission created successfully.")
}

func (s *HTTPServer) PermissionUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.PermissionReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	permission, err := s.svc.PermissionUpdate(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, permission, "Permission updated successfully.")
}

func (s *HTTPServer) PermissionDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.svc.PermissionDelete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, []interface{}{}, "Permission soft-deleted successfully.")
}
