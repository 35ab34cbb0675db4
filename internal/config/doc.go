// Package config loads, parses and validates process configuration from
// defaults, an optional config.yaml, an optional .env file and TASKOVERFLOW_
// environment variables.
package config
