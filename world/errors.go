package world

import "errors"

// ErrPatchNotFound names the absence of an already materialized patch. No
// function in this package currently returns it: PatchAt reports absence
// with a bool.
var ErrPatchNotFound = errors.New("world: patch not found")
