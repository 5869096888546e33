// Package hcl provides the HCL implementation of config.Loader. It is
// responsible for file parsing, expression evaluation and translation of the
// HCL schema into the format-agnostic config.Model.
package hcl
