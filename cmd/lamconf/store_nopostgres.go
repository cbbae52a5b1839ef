//go:build !postgres

package main

import (
	"context"
	"fmt"
)

func openPostgres(_ context.Context, _ *Config) (*backends, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags postgres", errBackendUnavailable)
}

func postgresStatus(_ *Config) (string, error) {
	return "", fmt.Errorf("%w: rebuild with -tags postgres", errBackendUnavailable)
}
