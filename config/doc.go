// Package config loads process configuration from BCFS_* environment
// variables and builds the zap logger shared by the other packages.
package config
