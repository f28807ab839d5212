package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
)

func (s *HTTPServer) RoleList(c echo.Context) error {
	roles, err := s.svc.RoleList(c.Request().Context())
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, roles, "Successfully retrieved roles")
}

func (s *HTTPServer) RoleGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	role, err := s.svc.RoleGet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, role, "Role retrieved successfully.")
}

func (s *HTTPServer) RoleCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.RoleReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	role, err := s.svc.RoleCreate(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusCreated, role, "Role created successfully.")
}

func (s *HTTPServer) RoleUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.RoleReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	role, err := s.svc.RoleUpdate(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, role, "Role updated successfully.")
}

func (s *HTTPServer) RoleDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.svc.RoleDelete(c.Request().Context(), user, id); err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, []interface{}{}, "Role soft-deleted successfully.")
}

func (s *HTTPServer) RoleGrant(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.RolePermissionReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	role, err := s.svc.RoleGrant(c.Request().Context(), user, id, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, role, "Permission granted successfully.")
}

func (s *HTTPServer) RoleRevoke(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	permissionID, err := GetAndParseParam(c, "permission_id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	role, err := s.svc.RoleRevoke(c.Request().Context(), user, id, service.RolePermissionReq{PermissionID: permissionID})
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, role, "Permission revoked successfully.")
}

func (s *HTTPServer) CategoryList(c echo.Context) error {
	categories, err := s.svc.CategoryList(c.Request().Context())
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, categories, "Successfully retrieved categories")
}

func (s *HTTPServer) CategoryCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.CategoryReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	category, err := s.svc.CategoryCreate(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusCreated, category, "Category created successfully.")
}

func (s *HTTPServer) BadgeList(c echo.Context) error {
	badges, err := s.svc.BadgeList(c.Request().Context())
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusOK, badges, "Successfully retrieved badges")
}

func (s *HTTPServer) BadgeCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := service.BadgeReq{}
	if err := Bind(c, &req); err != nil {
		return err
	}

	badge, err := s.svc.BadgeCreate(c.Request().Context(), user, req)
	if err != nil {
		return err
	}
	return sendResponse(c, http.StatusCreated, badge, "Badge created successfully.")
}
