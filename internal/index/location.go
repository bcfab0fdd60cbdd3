// Package index prepares the on-disk search index the application serves
// from: a Chroma vector-store directory plus the serialized BM25 and
// metadata files. It decides whether the index is complete, restores it
// from a bundle archive when it is not, and reconciles the directory
// layouts older bundles produced.
package index

import "os"

// Location is the resolved set of filesystem paths for one run. It is
// derived once from the environment and never changes afterwards.
type Location struct {
	DataDir   string
	IndexDir  string
	ChromaDir string
	BM25Path  string
	MetaPath  string
}

// Artifact is one expected index artifact, used by status output and
// diagnostics.
type Artifact struct {
	Name string
	Path string
	Dir  bool
}

// Artifacts returns the three artifacts the completeness invariant checks,
// in report order.
func (l Location) Artifacts() []Artifact {
	return []Artifact{
		{Name: "vector store", Path: l.ChromaDir, Dir: true},
		{Name: "bm25 index", Path: l.BM25Path},
		{Name: "metadata", Path: l.MetaPath},
	}
}

// Complete reports whether the index satisfies the completeness invariant:
// the vector-store directory exists AND both serialized files exist.
// Partial states count as incomplete; there is no partial repair.
func (l Location) Complete() bool {
	for _, a := range l.Artifacts() {
		if !artifactPresent(a) {
			return false
		}
	}
	return true
}

func artifactPresent(a Artifact) bool {
	info, err := os.Stat(a.Path)
	if err != nil {
		return false
	}
	return info.IsDir() == a.Dir
}
