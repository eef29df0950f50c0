// Package config loads bridge settings from YAML, a dotenv file and the
// process environment, and reads the static action table (device codes and
// cameras).
package config
