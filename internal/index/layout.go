package index

import "path/filepath"

// Layout classifies what a bundle extraction left on disk. The bundle
// format changed across producer versions: current bundles expand straight
// into the index root, older ones carried a nested data/index tree.
type Layout int

const (
	// LayoutDirect means the index is complete at the resolved paths.
	LayoutDirect Layout = iota
	// LayoutNestedLegacy means a complete index sits under
	// <data_root>/data/index and must be moved into place.
	LayoutNestedLegacy
	// LayoutInvalid means neither layout is present.
	LayoutInvalid
)

func (l Layout) String() string {
	switch l {
	case LayoutDirect:
		return "direct"
	case LayoutNestedLegacy:
		return "nested-legacy"
	default:
		return "invalid"
	}
}

// DetectLayout classifies the on-disk state of loc.
func DetectLayout(loc Location) Layout {
	if loc.Complete() {
		return LayoutDirect
	}
	if legacyLocation(loc).Complete() {
		return LayoutNestedLegacy
	}
	return LayoutInvalid
}

// legacyIndexDir is the nested tree older bundles expanded to.
func legacyIndexDir(loc Location) string {
	return filepath.Join(loc.DataDir, "data", "index")
}

// legacyLocation describes where the artifacts sit inside a legacy tree.
// Legacy bundles predate the path overrides, so the artifact names are
// always the canonical ones.
func legacyLocation(loc Location) Location {
	dir := legacyIndexDir(loc)
	return Location{
		DataDir:   loc.DataDir,
		IndexDir:  dir,
		ChromaDir: filepath.Join(dir, "chroma"),
		BM25Path:  filepath.Join(dir, "bm25.pkl"),
		MetaPath:  filepath.Join(dir, "meta.pkl"),
	}
}
