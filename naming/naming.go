// Package naming builds content-hashed output file names for chunks,
// entries and assets.
package naming

import (
	"path"
	"regexp"
	"strings"

	"chunksplit/cas"
)

const (
	// HashLength is the number of hex characters used in file names.
	HashLength = 8

	// InlineLimit is the asset size below which assets are inlined.
	InlineLimit = 4096

	ChunkDir  = "chunks"
	AssetDir  = "assets"
	ImageDir  = "assets/images"
	FontDir   = "assets/fonts"
	EntryBase = "entry"
)

// AssetKind classifies an asset by extension.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetFont  AssetKind = "font"
	AssetOther AssetKind = "other"
)

// Kind patterns are unanchored, so "favicon" and "logo.svgz" count as images.
var (
	imagePattern = regexp.MustCompile(`(?i)png|jpe?g|svg|gif|tiff|bmp|ico`)
	fontPattern  = regexp.MustCompile(`(?i)woff2?|eot|ttf|otf`)
)

// Hash returns the short content hash used in output names.
func Hash(content []byte) string {
	return cas.ShortHash(content, HashLength)
}

// ChunkFile returns "chunks/<name>-<hash>.js".
func ChunkFile(name string, content []byte) string {
	return ChunkDir + "/" + name + "-" + Hash(content) + ".js"
}

// EntryFile returns "entry-<hash>.js".
func EntryFile(content []byte) string {
	return EntryBase + "-" + Hash(content) + ".js"
}

// Kind returns the asset kind for a file name by searching the text after
// its last dot, or the whole name when it has none.
func Kind(name string) AssetKind {
	ext := name[strings.LastIndex(name, ".")+1:]
	switch {
	case imagePattern.MatchString(ext):
		return AssetImage
	case fontPattern.MatchString(ext):
		return AssetFont
	}
	return AssetOther
}

// AssetFile returns the output path for an asset: images and fonts get their
// own directories, everything else goes under assets/.
func AssetFile(name string, content []byte) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dir := AssetDir
	switch Kind(name) {
	case AssetImage:
		dir = ImageDir
	case AssetFont:
		dir = FontDir
	}
	return dir + "/" + stem + "-" + Hash(content) + ext
}

// Inline reports whether an asset of size bytes is inlined rather than
// emitted as a file.
func Inline(size int64) bool {
	return size < InlineLimit
}
