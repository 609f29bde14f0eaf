package service

import "net"

// Service is a long-running network service, such as the REST API
// or the metrics exposer.
type Service interface {
	Serve() error
	Addr() net.Addr
	Close() error
}
