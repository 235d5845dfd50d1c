// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package mediatype classifies files by extension into the media kinds the
// catalog serves. Lookup tables are fixed at compile time; extension
// matching is case-insensitive.
package mediatype

import (
	"path/filepath"
	"strings"
)

// Kind values returned by KindOf.
const (
	KindImage   = "image"
	KindVideo   = "video"
	KindUnknown = ""
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {},
	".tiff": {}, ".tif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".heic": {}, ".heif": {}, ".raw": {}, ".cr2": {}, ".nef": {},
	".arw": {}, ".dng": {}, ".orf": {}, ".sr2": {}, ".psd": {}, ".xcf": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".webm": {}, ".mov": {}, ".avi": {}, ".mkv": {},
	".wmv": {}, ".flv": {}, ".m4v": {}, ".3gp": {}, ".mpg": {},
	".mpeg": {}, ".ts": {}, ".m2ts": {}, ".vob": {}, ".ogv": {},
	".mts": {}, ".m2v": {}, ".divx": {}, ".asf": {}, ".rm": {},
	".rmvb": {}, ".mp2": {}, ".mpv": {}, ".f4v": {}, ".swf": {},
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".ico":  "image/x-icon",
	".heic": "image/heic",
	".heif": "image/heif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".m4v":  "video/mp4",
	".3gp":  "video/3gpp",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".ts":   "video/mp2t",
	".m2ts": "video/mp2t",
	".ogv":  "video/ogg",
	".mts":  "video/mp2t",
}

func ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// KindOf returns the media kind for a filename, or KindUnknown when the
// extension is not a recognized media format.
func KindOf(name string) string {
	e := ext(name)
	if _, ok := imageExtensions[e]; ok {
		return KindImage
	}
	if _, ok := videoExtensions[e]; ok {
		return KindVideo
	}
	return KindUnknown
}

// IsMedia reports whether the filename has a recognized media extension.
func IsMedia(name string) bool {
	return KindOf(name) != KindUnknown
}

// MIME returns the MIME type for a filename. Falls back to
// application/octet-stream for media formats without a registered MIME type
// and empty string for non-media files.
func MIME(name string) string {
	if m, ok := mimeTypes[ext(name)]; ok {
		return m
	}
	if IsMedia(name) {
		return "application/octet-stream"
	}
	return ""
}
