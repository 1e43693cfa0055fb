// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "testing"

func TestParseSlash(t *testing.T) {
	tests := []struct {
		input    string
		wantOK   bool
		wantName string
		wantArgs string
	}{
		{"/clear", true, cmdClear, ""},
		{"  /mode  study  ", true, cmdMode, "study"},
		{"/upload cat.png 看看这个", true, cmdUpload, "cat.png 看看这个"},
		{"/exit", true, cmdQuit, ""},
		{"/image 一只猫", false, "", ""},
		{"/video", false, "", ""},
		{"hello /clear", false, "", ""},
		{"/unknown", false, "", ""},
	}
	for _, tt := range tests {
		sc, ok := ParseSlash(tt.input)
		if ok != tt.wantOK {
			t.Errorf("ParseSlash(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			continue
		}
		if sc.Name != tt.wantName || sc.Args != tt.wantArgs {
			t.Errorf("ParseSlash(%q) = %+v, want {%s %s}", tt.input, sc, tt.wantName, tt.wantArgs)
		}
	}
}

func TestSplitUpload(t *testing.T) {
	tests := []struct {
		args     string
		wantPath string
		wantText string
	}{
		{"", "", ""},
		{"cat.png", "cat.png", ""},
		{"cat.png  这是什么？", "cat.png", "这是什么？"},
		{`"my pics/cat.png" 看看`, "my pics/cat.png", "看看"},
		{`'a b.jpg'`, "a b.jpg", ""},
		{`"unterminated.png hi`, `"unterminated.png`, "hi"},
	}
	for _, tt := range tests {
		path, text := SplitUpload(tt.args)
		if path != tt.wantPath || text != tt.wantText {
			t.Errorf("SplitUpload(%q) = (%q, %q), want (%q, %q)", tt.args, path, text, tt.wantPath, tt.wantText)
		}
	}
}
