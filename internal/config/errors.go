// SPDX-License-Identifier: MIT

package config

import "errors"

// Load failures that callers match with errors.Is.
var (
	ErrUnknownConfigField = errors.New("unknown config field")
	ErrUnsupportedFormat  = errors.New("unsupported config format")
	ErrMultipleDocuments  = errors.New("config file must hold exactly one YAML document")
)
