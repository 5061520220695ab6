package value

import _ "embed"

// Source is the text of value.go. Generated Go programs inline it so they
// share these semantics.
//
//go:embed value.go
var Source string
