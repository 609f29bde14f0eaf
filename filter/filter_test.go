package filter

import (
	"errors"
	"testing"

	"github.com/ZettaScaleLabs/zplugin-ros2/config"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
)

func TestEmptyFilterAdmitsEverything(t *testing.T) {
	f, err := NewFilter()
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	for _, kind := range []ros2.InterfaceKind{ros2.Publisher, ros2.ServiceServer, ros2.ActionClient} {
		if !f.Admit(kind, "/anything") {
			t.Errorf("%s /anything rejected by empty filter", kind)
		}
	}
}

func TestNilFilterAdmitsEverything(t *testing.T) {
	var f *Filter
	if !f.Admit(ros2.Publisher, "/chatter") {
		t.Error("nil filter rejected /chatter")
	}
}

func TestAllowWinsOverDeny(t *testing.T) {
	f, err := NewFilter(
		AllowOption(&config.InterfacesConfig{Publishers: []string{".*cmd_vel"}}),
		DenyOption(&config.InterfacesConfig{Publishers: []string{"/cmd_vel"}}),
	)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.Admit(ros2.Publisher, "/cmd_vel") {
		t.Error("/cmd_vel rejected although an allow rule matches it")
	}
}

func TestNonEmptyAllowRejectsNonMatches(t *testing.T) {
	f, err := NewFilter(AllowOption(&config.InterfacesConfig{
		Publishers: []string{"/chatter", "/tf.*"},
	}))
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	cases := []struct {
		name string
		want bool
	}{
		{"/chatter", true},
		{"/tf", true},
		{"/tf_static", true},
		{"/rosout", false},
		{"/chatter2", false},
	}
	for _, c := range cases {
		if got := f.Admit(ros2.Publisher, c.name); got != c.want {
			t.Errorf("Admit(publisher, %q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRulesScopedPerKind(t *testing.T) {
	f, err := NewFilter(AllowOption(&config.InterfacesConfig{
		Publishers: []string{"/chatter"},
	}))
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	// the subscriber kind has no allow rules, it stays default-admit
	if !f.Admit(ros2.Subscriber, "/rosout") {
		t.Error("subscriber rejected by a publisher-only allow set")
	}
}

func TestDenyRejects(t *testing.T) {
	f, err := NewFilter(DenyOption(&config.InterfacesConfig{
		ServiceServers: []string{"/internal/.*"},
	}))
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if f.Admit(ros2.ServiceServer, "/internal/reset") {
		t.Error("/internal/reset admitted despite deny rule")
	}
	if !f.Admit(ros2.ServiceServer, "/public/reset") {
		t.Error("/public/reset rejected")
	}
}

func TestPatternsAnchored(t *testing.T) {
	f, err := NewFilter(DenyOption(&config.InterfacesConfig{
		Publishers: []string{"/tf"},
	}))
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	// "/tf" must not match "/tf_static"
	if !f.Admit(ros2.Publisher, "/tf_static") {
		t.Error("unanchored match: /tf rule rejected /tf_static")
	}
}

func TestBadPatternIsConfigError(t *testing.T) {
	_, err := NewFilter(AllowOption(&config.InterfacesConfig{
		Publishers: []string{"["},
	}))
	if err == nil {
		t.Fatal("uncompilable pattern accepted")
	}
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("error = %v, want config.ErrInvalid", err)
	}
}
