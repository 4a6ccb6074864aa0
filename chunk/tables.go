package chunk

// RulesVersion identifies the built-in rule tables. Bump it whenever a table
// or rule below changes so cached classifications and manifests are
// invalidated.
const RulesVersion = "1"

// Modules the hosting tool resolves itself. Splitting them breaks its
// runtime, so they are never assigned a chunk.
var internalMarkers = []string{
	"storybook/internal",
	"virtual:",
}

// storybookPackage maps a Storybook package path to its fixed chunk.
// A module containing any of exclude is skipped by the entry.
type storybookPackage struct {
	fragment string
	exclude  string
	chunk    string
}

var storybookPackages = []storybookPackage{
	{fragment: "@storybook/core", chunk: "storybook-core"},
	{fragment: "@storybook/web-components", exclude: "addon", chunk: "storybook-web-components"},
	{fragment: "@storybook/addon-essentials", chunk: "storybook-essentials"},
	{fragment: "@storybook/addon-links", chunk: "storybook-links"},
}

const (
	addonMarker   = "@storybook/addon-"
	addonFallback = "addons"
)

// Matched as plain substrings anywhere in the id.
var litFragments = []string{"lit", "lit-html", "lit-element"}

const litChunk = "lit-vendor"

const installDir = "node_modules"

// frameworkVendor groups well known framework packages regardless of how
// their package name would otherwise bucket.
type frameworkVendor struct {
	fragments []string
	chunk     string
}

var frameworkVendors = []frameworkVendor{
	{fragments: []string{"react/", "react-dom/"}, chunk: "react-vendor"},
	{fragments: []string{"@testing-library/"}, chunk: "testing-vendor"},
	{fragments: []string{"zod"}, chunk: "zod-vendor"},
	{fragments: []string{"clsx", "tailwind-merge"}, chunk: "utils-vendor"},
}

const (
	radixMarker   = "@radix-ui/"
	radixFallback = "radix-vendor"
)

// largeDependency gives a disproportionately large package its own chunk.
type largeDependency struct {
	name  string
	chunk string
}

// Checked in order against the resolved package name.
var largeDependencies = []largeDependency{
	{name: "axe-core", chunk: "vendor-axe"},
	{name: "lodash", chunk: "vendor-lodash"},
	{name: "color-convert", chunk: "vendor-color"},
	{name: "react-colorful", chunk: "vendor-react-colorful"},
	{name: "get-intrinsic", chunk: "vendor-intrinsic"},
	{name: "call-bind", chunk: "vendor-bind"},
}

// Scopes split per package even when their name is short.
var largeOrganizations = map[string]bool{
	"testing-library": true,
	"storybook":       true,
}

const (
	// Scopes with longer names are split per package.
	orgNameLimit = 8
	// Package names are cut to this many characters in per-package chunks.
	orgPackagePrefix = 8
	vendorPrefix     = "vendor-"
	vendorFallback   = "vendor-misc"
)

var storyMarkers = []string{"/stories.", "/examples/"}

type storyGroup struct {
	fragment string
	chunk    string
}

var storyGroups = []storyGroup{
	{fragment: "/html/examples/", chunk: "stories-web-components"},
	{fragment: "/dist/adapters/vanilla/", chunk: "stories-vanilla"},
}

const storyFallback = "stories"
