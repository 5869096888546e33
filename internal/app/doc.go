// Package app wires the cache, the pipeline registry and the replacement
// router into one application object, decoupled from any specific entrypoint
// like a CLI.
package app
