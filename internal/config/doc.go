// Package config provides the configuration of repocrawl: CLI-level
// settings in Config, and per-host request and crawl settings loaded from
// the YAML file .repocrawl.
package config
