// SPDX-License-Identifier: MIT

// Package config loads json2xmltv settings.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed strictly:
// unknown keys and multiple documents are rejected. ConfigHolder keeps the
// active configuration and hot-reloads the file when it changes.
package config
