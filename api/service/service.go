package service

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZettaScaleLabs/zplugin-ros2/api"
	"github.com/ZettaScaleLabs/zplugin-ros2/service"
)

type options struct {
	accessLog  bool
	pathPrefix string
	routes     api.RouteProvider
}

type Option func(*options)

func PathPrefixOption(pathPrefix string) Option {
	return func(o *options) {
		o.pathPrefix = pathPrefix
	}
}

func AccessLogOption(enable bool) Option {
	return func(o *options) {
		o.accessLog = enable
	}
}

func RoutesOption(routes api.RouteProvider) Option {
	return func(o *options) {
		o.routes = routes
	}
}

type server struct {
	s  *http.Server
	ln net.Listener
}

func NewService(network, addr string, opts ...Option) (service.Service, error) {
	if network == "" {
		network = "tcp"
	}
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}

	var options options
	for _, opt := range opts {
		opt(&options)
	}

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	api.Register(r, &api.Options{
		AccessLog:  options.accessLog,
		PathPrefix: options.pathPrefix,
		Routes:     options.routes,
	})

	return &server{
		s: &http.Server{
			Handler: r,
		},
		ln: ln,
	}, nil
}

func (s *server) Serve() error {
	return s.s.Serve(s.ln)
}

func (s *server) Addr() net.Addr {
	return s.ln.Addr()
}

func (s *server) Close() error {
	return s.s.Close()
}
