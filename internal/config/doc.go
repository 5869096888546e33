// Package config defines the format-agnostic configuration model: global
// settings and named pipeline definitions. Concrete file formats are loaded
// by separate packages implementing Loader.
package config
