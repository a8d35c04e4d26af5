// Package internal contains the value handling of the file store: normalisation of
// caller supplied values into the canonical value set, deep copies, equality and the
// structural query matcher.
package internal
