package ledger

import (
	"encoding/json"
	"testing"
)

func TestParseMetadata(t *testing.T) {
	raw := []byte(`{
		"ip": "203.0.113.7",
		"lat": 40.7,
		"international": true,
		"memo": null,
		"tags": ["wire", "urgent"],
		"geo": {"country": "US", "city": "New York"}
	}`)

	meta, err := ParseMetadata(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if ip, ok := meta.Str("ip"); !ok || ip != "203.0.113.7" {
		t.Errorf("ip = %q, ok=%v", ip, ok)
	}
	if lat, ok := meta.Float("lat"); !ok || lat != 40.7 {
		t.Errorf("lat = %f, ok=%v", lat, ok)
	}
	if intl, ok := meta.Bool("international"); !ok || !intl {
		t.Errorf("international = %v, ok=%v", intl, ok)
	}
	if meta.Has("memo") {
		t.Error("explicit null should read as absent")
	}
	if _, ok := meta.Str("memo"); ok {
		t.Error("null should not read as a string")
	}

	tags, ok := meta["tags"].Items()
	if !ok || len(tags) != 2 {
		t.Fatalf("tags = %d items, ok=%v", len(tags), ok)
	}
	if v, _ := tags[0].Str(); v != "wire" {
		t.Errorf("tags[0] = %q", v)
	}

	geo, ok := meta["geo"].Fields()
	if !ok {
		t.Fatal("geo should be an object")
	}
	if v, _ := geo["country"].Str(); v != "US" {
		t.Errorf("geo.country = %q", v)
	}
}

func TestParseMetadataMalformed(t *testing.T) {
	if _, err := ParseMetadata([]byte(`{"broken":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if _, err := ParseMetadata([]byte(`[1, 2, 3]`)); err == nil {
		t.Error("expected error for non-object document")
	}
}

func TestParseMetadataEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte(`{}`), []byte(`null`)} {
		meta, err := ParseMetadata(raw)
		if err != nil {
			t.Errorf("ParseMetadata(%q): %v", raw, err)
		}
		if meta.Has("anything") {
			t.Errorf("ParseMetadata(%q): unexpected keys", raw)
		}
	}
}

func TestMetadataNilSafe(t *testing.T) {
	var meta Metadata
	if _, ok := meta.Str("x"); ok {
		t.Error("nil metadata should report absent")
	}
	if _, ok := meta.Float("x"); ok {
		t.Error("nil metadata should report absent")
	}
	if meta.Has("x") {
		t.Error("nil metadata should report absent")
	}
}

func TestValueRoundTrip(t *testing.T) {
	meta := Metadata{
		"device": String("dev-1"),
		"amount": Number(1200.50),
		"flags":  List(Bool(true), Null()),
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseMetadata(raw)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if v, _ := got.Str("device"); v != "dev-1" {
		t.Errorf("device = %q", v)
	}
	if v, _ := got.Float("amount"); v != 1200.50 {
		t.Errorf("amount = %f", v)
	}
	if items, ok := got["flags"].Items(); !ok || len(items) != 2 || !items[1].IsNull() {
		t.Errorf("flags round trip broken: %v", items)
	}
}
