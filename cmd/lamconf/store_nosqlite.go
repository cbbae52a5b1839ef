//go:build !sqlite

package main

import "fmt"

func openSQLite(_ *Config) (*backends, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags sqlite", errBackendUnavailable)
}

func sqliteStatus(_ *Config) (string, error) {
	return "", fmt.Errorf("%w: rebuild with -tags sqlite", errBackendUnavailable)
}
