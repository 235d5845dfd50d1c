// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package mediatype

import "testing"

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"beach.jpg", KindImage},
		{"BEACH.JPG", KindImage},
		{"panorama.heic", KindImage},
		{"clip.mp4", KindVideo},
		{"clip.MKV", KindVideo},
		{"show.m2ts", KindVideo},
		{"notes.txt", KindUnknown},
		{"archive.tar.gz", KindUnknown},
		{"noextension", KindUnknown},
		{"", KindUnknown},
		{".hidden", KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.name); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIsMedia(t *testing.T) {
	if !IsMedia("a.webp") {
		t.Error("a.webp should be media")
	}
	if IsMedia("a.exe") {
		t.Error("a.exe should not be media")
	}
}

func TestMIME(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.jpg", "image/jpeg"},
		{"a.m4v", "video/mp4"},
		{"a.ts", "video/mp2t"},
		{"a.svg", "image/svg+xml"},
		// Recognized media without a registered MIME type.
		{"a.divx", "application/octet-stream"},
		{"a.cr2", "application/octet-stream"},
		// Not media at all.
		{"a.pdf", ""},
	}

	for _, tt := range tests {
		if got := MIME(tt.name); got != tt.want {
			t.Errorf("MIME(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
