// Package config loads the per-process configuration surface:
// a YAML file parsed into FileConfig, overlaid with environment variables
// for secrets that should not live in a committed file, then validated
// and defaulted into a Config ready for the rest of the module to consume.
package config
