package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// .pnpm/<name>@<version>/node_modules/<package>, where <name> is
	// "@scope+pkg" for scoped packages.
	pnpmPattern = regexp.MustCompile(`\.pnpm/(@?[^@/]+)@[^/]+/node_modules/(@[^/]+/[^/]+|[^/]+)`)
	// node_modules/<package>
	installPattern = regexp.MustCompile(`node_modules/(@[^/]+/[^/]+|[^/]+)`)

	addonPattern = regexp.MustCompile(`@storybook/addon-([^/]+)`)
	radixPattern = regexp.MustCompile(`@radix-ui/([^/]+)`)

	letterPrefix = regexp.MustCompile(`^[a-z]{3,4}`)
	twoLetters   = regexp.MustCompile(`^[a-z]{2}`)
)

// PackageName extracts the installed package name ("lodash" or
// "@scope/name") from a module id. The nested pnpm store layout is tried
// before the flat node_modules layout.
func PackageName(id string) (string, bool) {
	if m := pnpmPattern.FindStringSubmatch(id); m != nil {
		return m[2], true
	}
	if m := installPattern.FindStringSubmatch(id); m != nil {
		return m[1], true
	}
	return "", false
}

// splitScope splits "@org/name" into "org" and "name".
func splitScope(pkg string) (org, name string) {
	parts := strings.Split(pkg, "/")
	org = strings.Replace(parts[0], "@", "", 1)
	if len(parts) > 1 {
		name = parts[1]
	}
	return org, name
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// firstRunes returns at most n leading runes of s.
func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
