package index

import "errors"

// ErrBundleURLRequired indicates a restore is needed but no bundle URL is
// configured. This is the one required external dependency.
var ErrBundleURLRequired = errors.New("INDEX_BUNDLE_URL is not set")

// ErrIndexIncomplete indicates the completeness check still fails after a
// restore, meaning the bundle was malformed or incompatible.
var ErrIndexIncomplete = errors.New("index is incomplete after restore")
