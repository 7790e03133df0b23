// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	if th := NewTheme(ModeDark); !th.IsDark || th.GlamourStyle() != "dark" {
		t.Errorf("dark theme: IsDark=%v style=%q", th.IsDark, th.GlamourStyle())
	}
	if th := NewTheme("LIGHT"); th.IsDark || th.GlamourStyle() != "light" {
		t.Errorf("light theme: IsDark=%v style=%q", th.IsDark, th.GlamourStyle())
	}
}

func TestRenderHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"success", RenderSuccess("saved"), "saved"},
		{"error", RenderError("boom"), "boom"},
		{"warning", RenderWarning("careful"), "careful"},
		{"info", RenderInfo("note"), "note"},
	}
	for _, tc := range tests {
		if !strings.Contains(tc.got, tc.want) {
			t.Errorf("%s: %q does not contain %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestShortcut(t *testing.T) {
	s := NewTheme(ModeDark).Shortcut("esc", "cancel")
	if !strings.Contains(s, "esc") || !strings.Contains(s, "cancel") {
		t.Errorf("Shortcut() = %q", s)
	}
}
