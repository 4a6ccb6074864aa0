package cache

import (
	"path/filepath"
	"testing"

	"chunksplit/chunk"
	"chunksplit/modulematch"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := openTestCache(t)

	_, found, err := c.Get("d1", chunk.Production, "/repo/node_modules/axe-core/axe.js")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Put("d1", chunk.Production, "/repo/node_modules/axe-core/axe.js", chunk.Some("vendor-axe")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Put("d1", chunk.Production, "/repo/src/index.ts", chunk.None()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	res, found, err := c.Get("d1", chunk.Production, "/repo/node_modules/axe-core/axe.js")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if res != chunk.Some("vendor-axe") {
		t.Errorf("Get = %v, want vendor-axe", res)
	}

	res, found, err = c.Get("d1", chunk.Production, "/repo/src/index.ts")
	if err != nil || !found {
		t.Fatalf("expected hit for None result, got found=%v err=%v", found, err)
	}
	if res.OK {
		t.Errorf("expected cached None, got %v", res)
	}

	// Other digests and modes are separate keys.
	if _, found, _ := c.Get("d2", chunk.Production, "/repo/node_modules/axe-core/axe.js"); found {
		t.Error("entry should not be visible under another digest")
	}
	if _, found, _ := c.Get("d1", chunk.Development, "/repo/node_modules/axe-core/axe.js"); found {
		t.Error("entry should not be visible under another mode")
	}
}

func TestGetOrClassify(t *testing.T) {
	c := openTestCache(t)
	cl := chunk.New(nil)
	id := "/repo/node_modules/.pnpm/lodash@4.17.21/node_modules/lodash/index.js"

	res, err := c.GetOrClassify(cl, chunk.Production, id)
	if err != nil {
		t.Fatalf("GetOrClassify failed: %v", err)
	}
	if res != chunk.Some("vendor-lodash") {
		t.Errorf("GetOrClassify = %v, want vendor-lodash", res)
	}

	n, err := c.Len()
	if err != nil || n != 1 {
		t.Fatalf("Len = %d, %v; want 1", n, err)
	}

	// A second call is served from the cache and adds no rows.
	res, err = c.GetOrClassify(cl, chunk.Production, id)
	if err != nil || res != chunk.Some("vendor-lodash") {
		t.Errorf("cached GetOrClassify = %v, %v", res, err)
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("Len = %d after cached lookup, want 1", n)
	}
}

func TestGetOrClassify_RuleChange(t *testing.T) {
	c := openTestCache(t)
	id := "/repo/node_modules/@acme/tokens/index.js"

	plain := chunk.New(nil)
	res, _ := c.GetOrClassify(plain, chunk.Production, id)
	if res != chunk.Some("vendor-acme") {
		t.Fatalf("plain = %v, want vendor-acme", res)
	}

	withOverride := chunk.New(modulematch.NewMatcher([]modulematch.Rule{
		{Name: "tokens", Paths: []string{"node_modules/@acme/tokens/**"}},
	}))
	res, _ = c.GetOrClassify(withOverride, chunk.Production, id)
	if res != chunk.Some("tokens") {
		t.Errorf("override = %v, want tokens; stale entry was reused", res)
	}

	removed, err := c.Purge(withOverride.Digest())
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge removed %d rows, want 1", removed)
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("Len = %d after purge, want 1", n)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if c.Path() != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", c.Path())
	}
	c.Put("d", chunk.Production, "id", chunk.Some("x"))
	c.Close()

	c, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c.Close()

	res, found, err := c.Get("d", chunk.Production, "id")
	if err != nil || !found || res != chunk.Some("x") {
		t.Errorf("entry not persisted: %v %v %v", res, found, err)
	}
}
