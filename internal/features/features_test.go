package features

import "testing"

func TestManager(t *testing.T) {
	m := NewManager()
	m.Register(CatalogCache, true, "cache catalog lookups")
	m.Register(EventHooks, false, "publish chat events")

	if !m.IsEnabled(CatalogCache) {
		t.Error("Expected catalog cache enabled")
	}
	if m.IsEnabled(EventHooks) {
		t.Error("Expected event hooks disabled")
	}
	if m.IsEnabled("unknown") {
		t.Error("Expected unknown flag disabled")
	}

	m.Register(EventHooks, true, "publish chat events")
	if !m.IsEnabled(EventHooks) {
		t.Error("Expected event hooks enabled after re-registering")
	}

	all := m.All()
	if len(all) != 2 || all[0].Name != CatalogCache || all[1].Name != EventHooks {
		t.Errorf("Unexpected flags: %+v", all)
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.IsEnabled(CatalogCache) {
		t.Error("Expected nil manager to report disabled")
	}
}
