// Package handlers HTTP 接口：路由、请求绑定、输出结构与错误映射
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/logging"
	"github.com/studieren/foodgram/service"
)

type Options struct {
	Service     *service.Service
	Store       *gormtool.CRUDTool
	Auth        *auth.Manager
	CORSOrigins []string
	// MediaDir 非空时在 MediaURL 下直接提供本地图片
	MediaDir string
	MediaURL string
	Gatherer prometheus.Gatherer
}

type Handler struct {
	svc   *service.Service
	store *gormtool.CRUDTool
}

func NewRouter(opts Options) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(logging.AccessLog(), recovery(), instrument(), corsMiddleware(opts.CORSOrigins))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	h := &Handler{svc: opts.Service, store: opts.Store}
	r.GET("/healthz", h.health)

	if opts.MediaDir != "" && strings.HasPrefix(opts.MediaURL, "/") {
		r.Static(opts.MediaURL, opts.MediaDir)
	}

	api := r.Group("/api", auth.Authenticate(opts.Auth))
	user := auth.RequireUser()

	route(api, http.MethodGet, "/recipes", h.listRecipes)
	route(api, http.MethodPost, "/recipes", user, h.createRecipe)
	route(api, http.MethodGet, "/recipes/download_shopping_cart", user, h.downloadShoppingCart)
	route(api, http.MethodGet, "/recipes/:id", h.getRecipe)
	route(api, http.MethodPatch, "/recipes/:id", user, h.updateRecipe)
	route(api, http.MethodDelete, "/recipes/:id", user, h.deleteRecipe)
	route(api, http.MethodPost, "/recipes/:id/favorite", user, h.addTo(service.Favorites))
	route(api, http.MethodDelete, "/recipes/:id/favorite", user, h.removeFrom(service.Favorites))
	route(api, http.MethodPost, "/recipes/:id/shopping_cart", user, h.addTo(service.ShoppingCart))
	route(api, http.MethodDelete, "/recipes/:id/shopping_cart", user, h.removeFrom(service.ShoppingCart))

	route(api, http.MethodGet, "/ingredients", h.listIngredients)
	route(api, http.MethodGet, "/ingredients/:id", h.getIngredient)
	route(api, http.MethodGet, "/tags", h.listTags)
	route(api, http.MethodGet, "/tags/:id", h.getTag)

	route(api, http.MethodGet, "/users/me", user, h.me)
	route(api, http.MethodGet, "/users/subscriptions", user, h.listSubscriptions)
	route(api, http.MethodGet, "/users/:id", h.getUser)
	route(api, http.MethodPost, "/users/:id/subscribe", user, h.subscribe)
	route(api, http.MethodDelete, "/users/:id/subscribe", user, h.unsubscribe)

	return r
}

// route 同时注册带与不带结尾斜杠的路径
func route(g *gin.RouterGroup, method, path string, handlers ...gin.HandlerFunc) {
	g.Handle(method, path, handlers...)
	g.Handle(method, path+"/", handlers...)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", logging.RequestIDHeader)
	cfg.ExposeHeaders = []string{"Content-Disposition", logging.RequestIDHeader}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}

	all := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			all = true
		}
	}
	if all {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		logging.Ctx(c.Request.Context()).Error().Interface("panic", err).Str("path", c.Request.URL.Path).Msg("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gormtool.Response{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
		})
	})
}

func (h *Handler) health(c *gin.Context) {
	status := h.store.Health(c.Request.Context())
	code := http.StatusOK
	if !status.OK() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gormtool.Response{Code: code, Message: http.StatusText(code), Data: status})
}
