// Package config holds the pipeline configuration and loads it from the
// environment.
package config
