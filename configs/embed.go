// Package configs provides the embedded starter template `init` copies into
// a newly initialized project. Grounded on the teacher's configs package,
// which embeds project/user config templates at build time with the same
// //go:embed directive so the template ships inside the binary itself
// (source builds, Homebrew, binary releases alike).
package configs

import _ "embed"

// StarterNotes is the starter contributor note `codewell init` writes to
// CODEWELL.md, explaining the on-disk state layout it just created.
//
//go:embed starter-notes.md.tmpl
var StarterNotes string
