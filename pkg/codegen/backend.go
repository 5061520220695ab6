// Package codegen holds what the code generators share.
package codegen

// Backend generates code for one target and writes it out.
type Backend interface {
	Generate() error
	GetCode() string
	Build() error
}
