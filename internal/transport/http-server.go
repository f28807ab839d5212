package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/config"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/validate"
)

const censored = "$censored"

var Module = fx.Options(
	fx.Provide(NewHTTPServer),
	fx.Invoke(func(*HTTPServer) {}),
)

var publicPaths = map[string]bool{
	"/ping":          true,
	"/metrics":       true,
	"/auth/register": true,
	"/auth/login":    true,
}

var booleanParams = map[string]bool{
	"paginate":     true,
	"with_trashed": true,
}

type HTTPServer struct {
	svc     *service.General
	logger  *zap.SugaredLogger
	metrics *metrics
	echo    *echo.Echo

	protected map[string]bool
}

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, svc *service.General, logger *zap.SugaredLogger) *HTTPServer {
	instance := newHTTPServer(svc, logger, rate.Limit(cfg.AuthRateLimit))
	e := instance.echo

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				logger.Infow("Starting HTTP server.", "listen", listen)
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("shutting down the server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return instance
}

func newHTTPServer(svc *service.General, logger *zap.SugaredLogger, authRate rate.Limit) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	echo.NotFoundHandler = func(c echo.Context) error {
		return sendError(c, http.StatusNotFound, "Not found.", nil)
	}

	instance := &HTTPServer{
		svc:     svc,
		logger:  logger,
		metrics: newMetrics(),
		echo:    e,
	}
	e.HTTPErrorHandler = instance.errorHandler

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", instance.metrics.handler())

	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(authRate))
	authG := e.Group("/auth")
	authG.POST("/register", instance.Register, limiter)
	authG.POST("/login", instance.Login, limiter)
	authG.POST("/logout", instance.Logout, limiter)
	authG.POST("/verify-email", instance.VerifyEmail, limiter)

	userG := e.Group("/users")
	userG.GET("", instance.UserList)
	userG.GET("/me", instance.UserMe)
	userG.GET("/:id", instance.UserGet)
	userG.DELETE("/:id", instance.UserDelete)
	userG.PUT("/:id/role", instance.UserAssignRole)
	userG.POST("/:id/badges", instance.UserAwardBadge)
	userG.GET("/:id/activities", instance.UserActivities)

	roleG := e.Group("/roles")
	roleG.GET("", instance.RoleList)
	roleG.POST("", instance.RoleCreate)
	roleG.GET("/:id", instance.RoleGet)
	roleG.PUT("/:id", instance.RoleUpdate)
	roleG.DELETE("/:id", instance.RoleDelete)
	roleG.POST("/:id/permissions", instance.RoleGrant)
	roleG.DELETE("/:id/permissions/:permission_id", instance.RoleRevoke)

	permissionG := e.Group("/permissions")
	permissionG.GET("", instance.PermissionList)
	permissionG.POST("", instance.PermissionCreate)
	permissionG.GET("/:id", instance.PermissionGet)
	permissionG.PUT("/:id", instance.PermissionUpdate)
	permissionG.DELETE("/:id", instance.PermissionDelete)

	e.GET("/categories", instance.CategoryList)
	e.POST("/categories", instance.CategoryCreate)
	e.GET("/badges", instance.BadgeList)
	e.POST("/badges", instance.BadgeCreate)

	postG := e.Group("/posts")
	postG.GET("", instance.PostList)
	postG.POST("", instance.PostCreate)
	postG.GET("/:id", instance.PostGet)
	postG.PUT("/:id", instance.PostUpdate)
	postG.DELETE("/:id", instance.PostDelete)
	postG.GET("/:id/history", instance.PostHistory)
	postG.GET("/:id/votes", instance.PostVotes)
	postG.POST("/:id/votes", instance.PostVote)

	bookmarkG := e.Group("/bookmarks")
	bookmarkG.POST("", instance.BookmarkCreate)
	bookmarkG.PUT("/:id", instance.BookmarkUpdate)
	bookmarkG.DELETE("/:id", instance.BookmarkDelete)
	bookmarkG.GET("/posts/:id", instance.BookmarkListByPost)
	bookmarkG.GET("/category/:id", instance.BookmarkListByCategory)

	e.Use(instance.metrics.middleware)
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDump(instance.dumpBody))

	// unmatched requests never reach a protected path and fall through to
	// the not found handler
	instance.protected = make(map[string]bool)
	for _, r := range e.Routes() {
		instance.metrics.routes[r.Path] = true
		if !publicPaths[r.Path] {
			instance.protected[r.Path] = true
		}
	}
	e.Use(instance.AuthMiddleware)

	return instance
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.protected[c.Path()] {
			return next(c)
		}
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return service.ErrUnauthorized
		}

		user, err := s.svc.Authenticate(c.Request().Context(), parts[1])
		if err != nil {
			s.logger.Debugw("authentication failed", "error", err)
			return err
		}

		c.Set("user", user)
		return next(c)
	}
}

func (s *HTTPServer) dumpBody(c echo.Context, reqBody, resBody []byte) {
	s.logger.Debugw("request",
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"status", c.Response().Status,
		"request", string(censorBody(reqBody)),
	)
}

// censorBody replaces every "password" value in a JSON body. Bodies that
// are not JSON are returned unchanged.
func censorBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return body
	}
	out, err := json.Marshal(censorValue(v))
	if err != nil {
		return body
	}
	return out
}

func censorValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if strings.Contains(strings.ToLower(k), "password") {
				t[k] = censored
				continue
			}
			t[k] = censorValue(val)
		}
	case []interface{}:
		for i := range t {
			t[i] = censorValue(t[i])
		}
	}
	return v
}

////////

// Bind decodes the request into v. A value of the wrong JSON type is
// reported as a validation error keyed by the field name.
func Bind(c echo.Context, v interface{}) error {
	err := c.Bind(v)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" && typeErr.Type != nil {
		kind := typeErr.Type.Kind()
		return validate.NewError(typeErr.Field, validate.Message(typeErr.Field, kindTag(kind), "", kind))
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code != http.StatusBadRequest {
		return err
	}
	return validate.NewError("body", "The request body is invalid.")
}

func kindTag(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	}
	return ""
}

// BindQuery runs fn against the query string binder and reports conversion
// failures as validation errors keyed by parameter name.
func BindQuery(c echo.Context, fn func(b *echo.ValueBinder)) error {
	b := echo.QueryParamsBinder(c)
	fn(b)
	err := b.BindError()
	if err == nil {
		return nil
	}
	var bindErr *echo.BindingError
	if errors.As(err, &bindErr) {
		tag := "integer"
		if booleanParams[bindErr.Field] {
			tag = "boolean"
		}
		return validate.NewError(bindErr.Field, validate.Message(bindErr.Field, tag, "", 0))
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func bindPage(c echo.Context, page *service.PageReq) error {
	return BindQuery(c, func(b *echo.ValueBinder) {
		b.Int("per_page", &page.PerPage).Int("page", &page.Page)
	})
}

func GetUserFromContext(c echo.Context) (*db.User, error) {
	user, ok := c.Get("user").(*db.User)
	if !ok || user == nil {
		return nil, errors.Wrap(service.ErrUnauthorized, "no user found in context")
	}
	return user, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, validate.NewError(name, validate.Message(name, "integer", "", 0))
	}
	return vv, nil
}
