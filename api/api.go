package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/route"
)

type Response struct {
	Code int         `json:"code,omitempty"`
	Msg  string      `json:"msg,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// RouteProvider is the read side of the route table served by the API.
type RouteProvider interface {
	Snapshot() []route.Info
	RemoteRoutes() map[string][]ros2.Identity
}

type Options struct {
	AccessLog  bool
	PathPrefix string
	Routes     RouteProvider
}

func Register(r *gin.Engine, opts *Options) {
	if opts == nil {
		opts = &Options{}
	}

	r.Use(
		cors.New((cors.Config{
			AllowAllOrigins:     true,
			AllowMethods:        []string{"GET", "OPTIONS"},
			AllowHeaders:        []string{"*"},
			AllowPrivateNetwork: true,
		})),
		gin.Recovery(),
	)
	if opts.AccessLog {
		r.Use(mwLogger())
	}

	router := r.Group("")
	if opts.PathPrefix != "" {
		router = router.Group(opts.PathPrefix)
	}

	router.GET("/config", getConfig)
	router.GET("/routes", getRoutes(opts.Routes))
	router.GET("/routes/:kind", getRoutesByKind(opts.Routes))
	router.GET("/peers", getPeers(opts.Routes))
}
