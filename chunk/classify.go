// Package chunk assigns module ids to named output chunks for production
// builds of the Storybook web-components preview.
//
// Classification is an ordered list of rules evaluated top to bottom; the
// first rule whose predicate matches decides the result. A result without a
// name leaves the module to the bundler's default chunking.
package chunk

import (
	"strings"
)

// Mode is the build mode the bundler runs in.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// ParseMode normalizes a mode string. Unknown values are returned as-is and
// behave like development.
func ParseMode(s string) Mode {
	return Mode(strings.ToLower(strings.TrimSpace(s)))
}

// Result is the outcome of classifying a single module.
// OK is false when no chunk was chosen.
type Result struct {
	Name string
	OK   bool
}

// Some returns a result naming a chunk.
func Some(name string) Result {
	return Result{Name: name, OK: true}
}

// None returns the result that defers to the bundler.
func None() Result {
	return Result{}
}

// String returns the chunk name, or "-" for None.
func (r Result) String() string {
	if !r.OK {
		return "-"
	}
	return r.Name
}

type rule struct {
	name    string
	match   func(id string) bool
	resolve func(id string) Result
}

var rules = []rule{
	{name: "internal", match: isInternal, resolve: func(string) Result { return None() }},
	{name: "storybook", match: isStorybookPackage, resolve: resolveStorybookPackage},
	{name: "addon", match: containsFn(addonMarker), resolve: resolveAddon},
	{name: "lit", match: containsAnyFn(litFragments), resolve: fixed(litChunk)},
	{name: "vendor", match: containsFn(installDir), resolve: resolveVendor},
	{name: "stories", match: containsAnyFn(storyMarkers), resolve: resolveStories},
}

// Classify returns the chunk for id. Only Production builds are split; every
// other mode returns None.
func Classify(id string, mode Mode) Result {
	if mode != Production {
		return None()
	}
	return classify(id)
}

// Rule returns the name of the built-in rule that decides id, or "" when no
// rule matches. It is independent of the build mode.
func Rule(id string) string {
	for _, r := range rules {
		if r.match(id) {
			return r.name
		}
	}
	return ""
}

func classify(id string) Result {
	for _, r := range rules {
		if r.match(id) {
			return r.resolve(id)
		}
	}
	return None()
}

func isInternal(id string) bool {
	return containsAny(id, internalMarkers)
}

func isStorybookPackage(id string) bool {
	_, ok := storybookChunk(id)
	return ok
}

func resolveStorybookPackage(id string) Result {
	name, _ := storybookChunk(id)
	return Some(name)
}

func storybookChunk(id string) (string, bool) {
	for _, p := range storybookPackages {
		if !strings.Contains(id, p.fragment) {
			continue
		}
		if p.exclude != "" && strings.Contains(id, p.exclude) {
			continue
		}
		return p.chunk, true
	}
	return "", false
}

func resolveAddon(id string) Result {
	if m := addonPattern.FindStringSubmatch(id); m != nil {
		return Some("addon-" + m[1])
	}
	return Some(addonFallback)
}

func resolveVendor(id string) Result {
	if strings.Contains(id, radixMarker) {
		if m := radixPattern.FindStringSubmatch(id); m != nil {
			return Some("radix-" + m[1])
		}
		return Some(radixFallback)
	}
	for _, v := range frameworkVendors {
		if containsAny(id, v.fragments) {
			return Some(v.chunk)
		}
	}

	pkg, ok := PackageName(id)
	if !ok {
		return Some(vendorFallback)
	}
	if name, ok := vendorChunk(pkg); ok {
		return Some(name)
	}
	return Some(vendorFallback)
}

// vendorChunk buckets a resolved package name.
func vendorChunk(pkg string) (string, bool) {
	for _, dep := range largeDependencies {
		if strings.Contains(pkg, dep.name) {
			return dep.chunk, true
		}
	}

	if strings.HasPrefix(pkg, "@") {
		org, name := splitScope(pkg)
		if runeLen(org) > orgNameLimit || largeOrganizations[org] {
			if name != "" {
				return vendorPrefix + org + "-" + firstRunes(name, orgPackagePrefix), true
			}
		}
		return vendorPrefix + org, true
	}

	if prefix := strings.ToLower(firstRunes(pkg, 4)); letterPrefix.MatchString(prefix) {
		return vendorPrefix + prefix, true
	}
	if two := strings.ToLower(firstRunes(pkg, 2)); twoLetters.MatchString(two) {
		return vendorPrefix + two, true
	}
	return "", false
}

func resolveStories(id string) Result {
	for _, g := range storyGroups {
		if strings.Contains(id, g.fragment) {
			return Some(g.chunk)
		}
	}
	return Some(storyFallback)
}

func fixed(name string) func(string) Result {
	return func(string) Result { return Some(name) }
}

func containsFn(fragment string) func(string) bool {
	return func(id string) bool { return strings.Contains(id, fragment) }
}

func containsAnyFn(fragments []string) func(string) bool {
	return func(id string) bool { return containsAny(id, fragments) }
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
