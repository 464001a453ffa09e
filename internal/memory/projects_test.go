package memory

import "testing"

func TestProjectStore_GetUnset(t *testing.T) {
	t.Parallel()

	if got := NewProjectStore().Get("nobody"); got != "" {
		t.Errorf("Get on unset user = %q, want empty", got)
	}
}

func TestProjectStore_SetOverwrites(t *testing.T) {
	t.Parallel()

	store := NewProjectStore()
	store.Set("user-1", "GV")
	store.Set("user-1", "AP")

	if got := store.Get("user-1"); got != "AP" {
		t.Errorf("Get = %q, want AP", got)
	}
}

func TestProjectStore_PerUserIsolation(t *testing.T) {
	t.Parallel()

	store := NewProjectStore()
	store.Set("user-1", "GV")

	if got := store.Get("user-2"); got != "" {
		t.Errorf("user-2 sees user-1's project: %q", got)
	}
}

func TestProjectStore_Clear(t *testing.T) {
	t.Parallel()

	store := NewProjectStore()
	store.Set("user-1", "GV")

	if !store.Clear("user-1") {
		t.Error("Clear on existing entry returned false")
	}
	if store.Clear("user-1") {
		t.Error("Clear on missing entry returned true")
	}
	if got := store.Get("user-1"); got != "" {
		t.Errorf("Get after Clear = %q, want empty", got)
	}
}

func TestProjectStore_ClearAll(t *testing.T) {
	t.Parallel()

	store := NewProjectStore()
	store.Set("a", "GV")
	store.Set("b", "AP")
	store.ClearAll()

	if store.Get("a") != "" || store.Get("b") != "" {
		t.Error("entries survived ClearAll")
	}
}
