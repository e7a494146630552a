// Package configs provides the embedded configuration template for docwatch.
//
// The template is embedded at build time so that `docwatch config init`
// works for source builds and binary releases alike. Defaults in the
// template must match internal/config NewConfig().
package configs

import _ "embed"

// ConfigTemplate is written by `docwatch config init` to
// ~/.config/docwatch/config.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
