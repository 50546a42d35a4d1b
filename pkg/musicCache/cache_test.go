package musiccache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics", "music_cache.list")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	if err := c.Add("Artist - Song", `{"title":"Song"}`); err != nil {
		t.Fatal(err)
	}
	if err := c.Add("Artist - Song", "ignored"); err != nil {
		t.Fatal(err)
	}
	if err := c.Add("multi\nline", "value"); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if v, ok := reopened.Get("Artist - Song"); !ok || v != `{"title":"Song"}` {
		t.Errorf("Get() = %q, %v", v, ok)
	}
	if _, ok := reopened.Get("multi\nline"); !ok {
		t.Error("flattened key not found after reload")
	}

	raw, _ := os.ReadFile(path)
	if n := strings.Count(string(raw), "\n"); n != 2 {
		t.Errorf("expected 2 lines in cache file, got %d", n)
	}
}

func TestOpenSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.list")
	content := "no separator\n => empty key\ngood => value\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get("good"); !ok || v != "value" {
		t.Errorf("Get(good) = %q, %v", v, ok)
	}
	if _, ok := c.Get(""); ok {
		t.Error("empty key should not be stored")
	}
}

func TestAddRejectsEmptyKey(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "c.list"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Add("  ", "v"); err == nil {
		t.Error("expected error for empty key")
	}
}
