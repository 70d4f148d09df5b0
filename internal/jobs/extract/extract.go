// Package extract pulls produced media assets out of raw provider output.
//
// Upstream providers change their output shape release to release without
// versioning, so recognition is an ordered list of known shapes with a
// last-resort URL sniff, never a hard failure on drift.
package extract

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"stella/internal/jobs"
)

// Kind selects the media-type-appropriate placeholder filename when a URL
// cannot be parsed or has no path segment.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func (k Kind) defaultFilename() string {
	if k == KindVideo {
		return "video.mp4"
	}
	return "image.png"
}

// arrayFields are object-array shapes, each entry carrying its own url.
var arrayFields = []string{"images", "videos", "files", "gifs"}

// singleFields are single-string shapes naming a direct asset URL, checked
// in order. Generic names come last.
var singleFields = []string{"video_url", "s3_url", "image_url", "image", "url"}

var mediaExtensions = []string{
	".mp4", ".webm", ".mov", ".avi",
	".png", ".jpg", ".jpeg", ".webp", ".gif",
}

// Assets scans a provider's raw output object and returns every recognized
// media asset. It is pure and total: nil, scalar, or unrecognized input
// yields an empty slice, never a panic or an error.
//
// Shape checks are non-exclusive and run in sequence; the bare string-field
// sweep runs only when nothing else matched.
func Assets(raw any, kind Kind) []jobs.MediaAsset {
	obj, ok := raw.(map[string]any)
	if !ok {
		return []jobs.MediaAsset{}
	}
	// Providers commonly nest the real payload one level down.
	if inner, ok := obj["output"].(map[string]any); ok {
		obj = inner
	}

	assets := []jobs.MediaAsset{}

	for _, field := range arrayFields {
		items, ok := obj[field].([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				// ComfyUI-style workers sometimes emit bare URL strings in
				// the images array.
				if s, ok := item.(string); ok && validURL(s) {
					assets = append(assets, jobs.MediaAsset{URL: s, Filename: Filename(s, kind)})
				}
				continue
			}
			u, _ := entry["url"].(string)
			if !validURL(u) {
				continue
			}
			name, _ := entry["filename"].(string)
			if name == "" {
				name = Filename(u, kind)
			}
			assets = append(assets, jobs.MediaAsset{URL: u, Filename: name})
		}
	}

	for _, field := range singleFields {
		s, ok := obj[field].(string)
		if !ok || !IsMediaURL(s) || !validURL(s) {
			continue
		}
		assets = append(assets, jobs.MediaAsset{URL: s, Filename: Filename(s, kind)})
	}

	if len(assets) == 0 {
		for _, value := range obj {
			s, ok := value.(string)
			if !ok || !IsMediaURL(s) || !validURL(s) {
				continue
			}
			assets = append(assets, jobs.MediaAsset{URL: s, Filename: Filename(s, kind)})
		}
	}

	return assets
}

// IsMediaURL reports whether a string looks like a retrievable media URL:
// a known media extension anywhere in it, or an S3-style host.
func IsMediaURL(s string) bool {
	lower := strings.ToLower(s)
	for _, ext := range mediaExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, "s3.") || strings.Contains(lower, "amazonaws.com")
}

// Filename derives a filename from the URL's last path segment, falling
// back to a kind-appropriate placeholder when the URL does not parse or the
// segment is empty.
func Filename(rawURL string, kind Kind) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return kind.defaultFilename()
	}
	segments := strings.Split(parsed.Path, "/")
	last := segments[len(segments)-1]
	if last == "" {
		return kind.defaultFilename()
	}
	return norm.NFC.String(last)
}

func validURL(s string) bool {
	parsed, err := url.Parse(strings.TrimSpace(s))
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}
