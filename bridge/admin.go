package bridge

import (
	"encoding/json"
	"strings"

	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

// handleAdminQuery serves the bridge's admin space:
//
//	@ros2/<id>/version          bridge version
//	@ros2/<id>/config           effective configuration
//	@ros2/<id>/route/**         one reply per route descriptor
func (b *Bridge) handleAdminQuery(q zenoh.Query) {
	selector := q.Selector()

	if keyMatches(selector, b.adminPrefix+"/version") {
		b.reply(q, b.adminPrefix+"/version", Version)
	}
	if keyMatches(selector, b.adminPrefix+"/config") {
		b.reply(q, b.adminPrefix+"/config", b.config)
	}
	for _, info := range b.table.Snapshot() {
		kind, ok := ros2.ParseKind(info.Kind)
		if !ok {
			continue
		}
		ke := b.adminPrefix + "/" + kind.RoutePrefix() + "/" + info.KeyExpr
		if keyMatches(selector, ke) {
			b.reply(q, ke, info)
		}
	}
}

func (b *Bridge) reply(q zenoh.Query, ke string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.log.Errorf("admin space: encoding %s: %v", ke, err)
		return
	}
	if err := q.Reply(ke, payload); err != nil {
		b.log.Warnf("admin space: replying %s: %v", ke, err)
	}
}

// keyMatches reports whether a key is selected by a selector that may end
// in a "**" wildcard chunk.
func keyMatches(selector, key string) bool {
	if prefix, found := strings.CutSuffix(selector, "/**"); found {
		return key == prefix || strings.HasPrefix(key, prefix+"/")
	}
	return selector == key
}
