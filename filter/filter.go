// Package filter implements the allow/deny policy deciding which discovered
// ROS interfaces are exposed over zenoh.
package filter

import (
	"fmt"
	"regexp"

	"github.com/ZettaScaleLabs/zplugin-ros2/config"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
)

type options struct {
	allow *config.InterfacesConfig
	deny  *config.InterfacesConfig
}

type Option func(opts *options)

func AllowOption(allow *config.InterfacesConfig) Option {
	return func(opts *options) {
		opts.allow = allow
	}
}

func DenyOption(deny *config.InterfacesConfig) Option {
	return func(opts *options) {
		opts.deny = deny
	}
}

// Filter is the compiled allow/deny rule sets, per interface kind.
// It is read-only after construction and safe for unsynchronized sharing.
type Filter struct {
	allow map[ros2.InterfaceKind][]*regexp.Regexp
	deny  map[ros2.InterfaceKind][]*regexp.Regexp
}

// NewFilter compiles the configured rule sets. A regex that fails to
// compile is a fatal configuration error; this is the only way this
// component can fail.
func NewFilter(opts ...Option) (*Filter, error) {
	var options options
	for _, opt := range opts {
		opt(&options)
	}

	allow, err := compileSets(options.allow)
	if err != nil {
		return nil, err
	}
	deny, err := compileSets(options.deny)
	if err != nil {
		return nil, err
	}

	return &Filter{allow: allow, deny: deny}, nil
}

// Admit reports whether an interface of the given kind and fully-qualified
// ROS name may be routed. A name matching an allow rule is admitted even if
// a deny rule matches it too (allow wins). With a non-empty allow set for
// the kind, names matching no allow rule are rejected. With no rules at
// all, everything is admitted.
func (f *Filter) Admit(kind ros2.InterfaceKind, name string) bool {
	if f == nil {
		return true
	}
	if matchAny(f.allow[kind], name) {
		return true
	}
	if len(f.allow[kind]) > 0 {
		return false
	}
	return !matchAny(f.deny[kind], name)
}

func matchAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func compileSets(cfg *config.InterfacesConfig) (map[ros2.InterfaceKind][]*regexp.Regexp, error) {
	m := make(map[ros2.InterfaceKind][]*regexp.Regexp)
	if cfg == nil {
		return m, nil
	}
	for _, set := range []struct {
		kind     ros2.InterfaceKind
		patterns []string
	}{
		{ros2.Publisher, cfg.Publishers},
		{ros2.Subscriber, cfg.Subscribers},
		{ros2.ServiceServer, cfg.ServiceServers},
		{ros2.ServiceClient, cfg.ServiceClients},
		{ros2.ActionServer, cfg.ActionServers},
		{ros2.ActionClient, cfg.ActionClients},
	} {
		res, err := compileAll(set.kind, set.patterns)
		if err != nil {
			return nil, err
		}
		m[set.kind] = res
	}
	return m, nil
}

// compileAll anchors each pattern with ^$ so that a rule matches whole
// interface names, as ROS tooling users expect.
func compileAll(kind ros2.InterfaceKind, patterns []string) ([]*regexp.Regexp, error) {
	var res []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: %s rule %q: %v", config.ErrInvalid, kind, pattern, err)
		}
		res = append(res, re)
	}
	return res, nil
}
