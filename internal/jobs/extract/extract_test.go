package extract

import (
	"encoding/json"
	"testing"

	"stella/internal/jobs"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return v
}

func TestAssetsImageArray(t *testing.T) {
	raw := decode(t, `{"images":[{"url":"https://cdn.example.com/a.png","filename":"a.png"},{"url":"https://cdn.example.com/b.png"}]}`)
	got := Assets(raw, KindImage)
	if len(got) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(got))
	}
	if got[0] != (jobs.MediaAsset{URL: "https://cdn.example.com/a.png", Filename: "a.png"}) {
		t.Fatalf("unexpected first asset: %+v", got[0])
	}
	if got[1].Filename != "b.png" {
		t.Fatalf("filename not derived from url: %+v", got[1])
	}
}

func TestAssetsBareStringImageArray(t *testing.T) {
	raw := decode(t, `{"images":["https://cdn.example.com/out_1.png"]}`)
	got := Assets(raw, KindImage)
	if len(got) != 1 || got[0].URL != "https://cdn.example.com/out_1.png" {
		t.Fatalf("unexpected assets: %+v", got)
	}
}

func TestAssetsS3URL(t *testing.T) {
	raw := decode(t, `{"output":{"s3_url":"https://bucket.s3.amazonaws.com/out.mp4"}}`)
	got := Assets(raw, KindVideo)
	if len(got) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(got))
	}
	want := jobs.MediaAsset{URL: "https://bucket.s3.amazonaws.com/out.mp4", Filename: "out.mp4"}
	if got[0] != want {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestAssetsVideoURLField(t *testing.T) {
	raw := decode(t, `{"video_url":"https://cdn.example.com/talk/result.mp4"}`)
	got := Assets(raw, KindVideo)
	if len(got) != 1 || got[0].Filename != "result.mp4" {
		t.Fatalf("unexpected assets: %+v", got)
	}
}

func TestAssetsFallbackScan(t *testing.T) {
	raw := decode(t, `{"message":"done","artifact":"https://cdn.example.com/gen/clip.webm","note":"not a url"}`)
	got := Assets(raw, KindVideo)
	if len(got) != 1 || got[0].URL != "https://cdn.example.com/gen/clip.webm" {
		t.Fatalf("unexpected assets: %+v", got)
	}
}

func TestAssetsFallbackSkippedWhenShapeMatched(t *testing.T) {
	raw := decode(t, `{"video_url":"https://cdn.example.com/a.mp4","stray":"https://cdn.example.com/b.mp4"}`)
	got := Assets(raw, KindVideo)
	if len(got) != 1 {
		t.Fatalf("fallback should not run after a shape match: %+v", got)
	}
}

func TestAssetsEmptyAndUnrecognized(t *testing.T) {
	for _, raw := range []any{nil, decode(t, `{}`), decode(t, `{"message":"ok"}`), decode(t, `[1,2]`), "plain"} {
		got := Assets(raw, KindImage)
		if len(got) != 0 {
			t.Fatalf("expected no assets for %v, got %+v", raw, got)
		}
	}
}

func TestAssetsDiscardsUnparseableURL(t *testing.T) {
	raw := decode(t, `{"images":[{"url":"://not a url.png"},{"url":"https://cdn.example.com/ok.png"}]}`)
	got := Assets(raw, KindImage)
	if len(got) != 1 || got[0].Filename != "ok.png" {
		t.Fatalf("unexpected assets: %+v", got)
	}
}

func TestAssetsNonMediaStringIgnored(t *testing.T) {
	raw := decode(t, `{"url":"https://example.com/status/page"}`)
	if got := Assets(raw, KindImage); len(got) != 0 {
		t.Fatalf("non-media url should be ignored: %+v", got)
	}
}

func TestIsMediaURL(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.example.com/a.PNG":             true,
		"https://bucket.s3.eu-west-1.amazonaws.com": true,
		"https://cdn.example.com/a.mp4?sig=x":       true,
		"https://example.com/page":                  false,
		"":                                          false,
	}
	for in, want := range cases {
		if got := IsMediaURL(in); got != want {
			t.Fatalf("IsMediaURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFilenameDefaults(t *testing.T) {
	if got := Filename("://bad", KindVideo); got != "video.mp4" {
		t.Fatalf("video default: %s", got)
	}
	if got := Filename("https://cdn.example.com/", KindImage); got != "image.png" {
		t.Fatalf("image default: %s", got)
	}
	if got := Filename("https://cdn.example.com/out/x.png", KindImage); got != "x.png" {
		t.Fatalf("segment: %s", got)
	}
}
