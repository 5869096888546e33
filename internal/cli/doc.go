// Package cli builds the gamepipe cobra command tree. It validates flags,
// creates one App per invocation and maps failures to process exit codes.
package cli
