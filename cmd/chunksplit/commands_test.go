package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chunksplit/internal/manifest"
	"chunksplit/internal/plan"
)

// execute runs the CLI with fresh flag values and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	configPath, modeFlag, rulesFlag, logLevelFlag, noCacheFlag = "", "", "", "", false
	classifyExplain = false
	planIDs, planOut, planJSON, planSizeLimitKB = false, "", false, 0
	diffJSON = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--log-level", "off"}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "chunksplit" {
		t.Errorf("expected Use 'chunksplit', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Short description should not be empty")
	}
	for _, name := range []string{"classify", "plan", "diff", "rules", "name", "cache"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if !rulesCmd.HasSubCommands() || !nameCmd.HasSubCommands() || !cacheCmd.HasSubCommands() {
		t.Error("command groups should have subcommands")
	}
}

func TestClassifyCommand_Args(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "none.yaml")

	out, err := execute(t, "", "classify", "--rules", rules,
		"/repo/node_modules/@storybook/addon-links/dist/index.js",
		"/repo/node_modules/axe-core/index.js",
		"/repo/src/index.ts",
	)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}

	want := "/repo/node_modules/@storybook/addon-links/dist/index.js\tstorybook-links\n" +
		"/repo/node_modules/axe-core/index.js\tvendor-axe\n" +
		"/repo/src/index.ts\t-\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestClassifyCommand_Stdin(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "none.yaml")
	stdin := "# dump\n/repo/node_modules/.pnpm/lodash@4.17.21/node_modules/lodash/index.js\n\n/virtual:x\n"

	out, err := execute(t, stdin, "classify", "--rules", rules)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if !strings.Contains(out, "lodash/index.js\tvendor-lodash\n") || !strings.Contains(out, "/virtual:x\t-\n") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestClassifyCommand_Development(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "none.yaml")

	out, err := execute(t, "", "classify", "--rules", rules, "--mode", "development", "--explain",
		"/repo/node_modules/axe-core/index.js")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if out != "/repo/node_modules/axe-core/index.js\t-\tmode:development\n" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestClassifyCommand_Explain(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "chunks.yaml")
	writeFile(t, rules, "chunks:\n  - name: tokens\n    paths: [\"node_modules/@acme/tokens/**\"]\n")

	out, err := execute(t, "", "classify", "--rules", rules, "--explain",
		"/repo/node_modules/@acme/tokens/index.js",
		"/repo/node_modules/lit/index.js",
		"/virtual:x",
		"/repo/src/index.ts",
	)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{
		"/repo/node_modules/@acme/tokens/index.js\ttokens\toverride:tokens",
		"/repo/node_modules/lit/index.js\tlit-vendor\trule:lit",
		"/virtual:x\t-\trule:internal",
		"/repo/src/index.ts\t-\tdefault",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestClassifyCommand_BadRules(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "chunks.yaml")
	writeFile(t, rules, "chunks:\n  - name: broken\n")

	if _, err := execute(t, "", "classify", "--rules", rules, "/repo/src/a.ts"); err == nil {
		t.Error("expected error for invalid rules file")
	}
}

func TestPlanAndDiffCommands(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "none.yaml")

	first := filepath.Join(dir, "first.txt")
	writeFile(t, first, strings.Join([]string{
		"/repo/node_modules/axe-core/axe.js",
		"/repo/node_modules/lit/index.js",
		"/repo/node_modules/ms/index.js",
		"/repo/src/index.ts",
	}, "\n"))
	second := filepath.Join(dir, "second.txt")
	writeFile(t, second, strings.Join([]string{
		"/repo/node_modules/axe-core/axe.js",
		"/repo/node_modules/lit/index.js",
		"/repo/node_modules/zod/index.js",
		"/repo/src/index.ts",
	}, "\n"))

	firstManifest := filepath.Join(dir, "first.manifest")
	out, err := execute(t, "", "plan", "--rules", rules, "--ids", first, "--out", firstManifest)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	for _, want := range []string{"vendor-axe", "lit-vendor", "vendor-ms", "chunks/vendor-axe-", "3 chunks, 3 modules", "1 deferred"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}

	m, err := manifest.ReadFile(firstManifest)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	if len(m.Assignments) != 3 || m.Mode != "production" {
		t.Errorf("unexpected manifest: %+v", m)
	}

	secondManifest := filepath.Join(dir, "second.manifest")
	if _, err := execute(t, "", "plan", "--rules", rules, "--ids", second, "--out", secondManifest); err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	out, err = execute(t, "", "diff", firstManifest, secondManifest)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	for _, want := range []string{
		"A  /repo/node_modules/zod/index.js",
		"D  /repo/node_modules/ms/index.js",
		"1 added, 1 removed, 0 moved",
		"100.0% of 2 common modules",
		"[zod-vendor]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("diff output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "", "diff", "--json", firstManifest, firstManifest)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	var d manifest.Diff
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if !d.Empty() || d.Stability != 1 {
		t.Errorf("self diff should be empty: %+v", d)
	}

	if _, err := execute(t, "", "diff", firstManifest, filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestPlanCommand_MetafileJSON(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "meta.json")
	writeFile(t, meta, `{"inputs": {
		"node_modules/axe-core/axe.js": {"bytes": 600000},
		"node_modules/lodash/lodash.js": {"bytes": 550000},
		"src/index.ts": {"bytes": 100}
	}}`)

	out, err := execute(t, "", "plan", "--rules", filepath.Join(dir, "none.yaml"), "--json", "--size-limit-kb", "500", meta)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	var p plan.Plan
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(p.Chunks) != 2 || p.SizeLimit != 500*1024 {
		t.Errorf("unexpected plan: %+v", p)
	}
	if len(p.Warnings) != 2 {
		t.Errorf("expected both vendor chunks over 500 KiB, got %v", p.Warnings)
	}
	if len(p.Deferred) != 1 || p.Deferred[0] != "src/index.ts" {
		t.Errorf("deferred = %v", p.Deferred)
	}
}

func TestPlanCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "none.yaml")

	if _, err := execute(t, "", "plan", "--rules", rules, filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing input")
	}
	if _, err := execute(t, "not json", "plan", "--rules", rules, "-"); err == nil {
		t.Error("expected error for invalid metafile on stdin")
	}
	if _, err := execute(t, "", "plan", "--rules", rules); err == nil {
		t.Error("expected error without input argument")
	}
}

func TestRulesCommands(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "build", "chunks.yaml")

	out, err := execute(t, "", "rules", "list", "--rules", rules)
	if err != nil || !strings.Contains(out, "No override rules") {
		t.Fatalf("list on missing file: %q, %v", out, err)
	}

	out, err = execute(t, "", "rules", "add", "--rules", rules, "tokens", "node_modules/@acme/tokens/**", "src/tokens/**")
	if err != nil || !strings.Contains(out, "Added rule tokens") {
		t.Fatalf("add: %q, %v", out, err)
	}
	out, err = execute(t, "", "rules", "add", "--rules", rules, "tokens", "src/design/**")
	if err != nil || !strings.Contains(out, "Updated rule tokens") {
		t.Fatalf("update: %q, %v", out, err)
	}
	if _, err := execute(t, "", "rules", "add", "--rules", rules, "bad", "src/[a-"); err == nil {
		t.Error("expected error for invalid pattern")
	}

	out, err = execute(t, "", "rules", "list", "--rules", rules)
	if err != nil || !strings.Contains(out, "tokens\n  src/design/**\n") {
		t.Fatalf("list: %q, %v", out, err)
	}

	out, err = execute(t, "", "rules", "check", "--rules", rules, "/repo/src/design/colors.ts", "/repo/src/other.ts")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "1 rules OK") ||
		!strings.Contains(out, "/repo/src/design/colors.ts\ttokens") ||
		!strings.Contains(out, "/repo/src/other.ts\t(no rule)") {
		t.Errorf("unexpected check output: %q", out)
	}

	out, err = execute(t, "", "rules", "remove", "--rules", rules, "tokens")
	if err != nil || !strings.Contains(out, "Removed rule tokens") {
		t.Fatalf("remove: %q, %v", out, err)
	}
	if _, err := execute(t, "", "rules", "remove", "--rules", rules, "tokens"); err == nil {
		t.Error("expected error removing a missing rule")
	}
}

func TestNameCommands(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "dot.svg")
	writeFile(t, small, "<svg/>")
	large := filepath.Join(dir, "Inter.woff2")
	writeFile(t, large, strings.Repeat("x", 5000))
	code := filepath.Join(dir, "chunk.js")
	writeFile(t, code, "export {}")

	out, err := execute(t, "", "name", "asset", small, large)
	if err != nil {
		t.Fatalf("name asset failed: %v", err)
	}
	if !strings.Contains(out, small+"\tinline\n") || !strings.Contains(out, large+"\tassets/fonts/Inter-") {
		t.Errorf("unexpected asset output: %q", out)
	}

	out, err = execute(t, "", "name", "chunk", "vendor-axe", code)
	if err != nil || !strings.HasPrefix(out, "chunks/vendor-axe-") {
		t.Errorf("name chunk: %q, %v", out, err)
	}

	out, err = execute(t, "", "name", "entry", code)
	if err != nil || !strings.HasPrefix(out, "entry-") {
		t.Errorf("name entry: %q, %v", out, err)
	}
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "none.yaml")
	t.Setenv("CHUNKSPLIT_CACHE_ENABLED", "true")
	t.Setenv("CHUNKSPLIT_CACHE_DIR", filepath.Join(dir, "cache"))

	if _, err := execute(t, "", "classify", "--rules", rules, "/repo/node_modules/axe-core/a.js", "/repo/node_modules/lit/b.js"); err != nil {
		t.Fatalf("classify failed: %v", err)
	}

	out, err := execute(t, "", "cache", "stats", "--rules", rules)
	if err != nil || !strings.Contains(out, ": 2 entries") {
		t.Fatalf("stats: %q, %v", out, err)
	}

	// Same rules: nothing is stale.
	out, err = execute(t, "", "cache", "purge", "--rules", rules)
	if err != nil || !strings.Contains(out, "Removed 0 stale entries") {
		t.Fatalf("purge: %q, %v", out, err)
	}

	// New rules make the old entries stale.
	writeFile(t, rules, "chunks:\n  - name: mine\n    paths: [\"src/**\"]\n")
	out, err = execute(t, "", "cache", "purge", "--rules", rules)
	if err != nil || !strings.Contains(out, "Removed 2 stale entries") {
		t.Fatalf("purge after rule change: %q, %v", out, err)
	}

	// --no-cache leaves the cache untouched.
	if _, err := execute(t, "", "classify", "--no-cache", "--rules", rules, "/repo/node_modules/ms/index.js"); err != nil {
		t.Fatal(err)
	}
	out, _ = execute(t, "", "cache", "stats", "--rules", rules)
	if !strings.Contains(out, ": 0 entries") {
		t.Errorf("cache should be empty, got %q", out)
	}
}
