package main

import (
	"context"

	"github.com/sagarc03/hearth/config"
)

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return config.WithContext(ctx, cfg)
}

// configFromContext retrieves the config loaded by the root command.
func configFromContext(ctx context.Context) (*config.Config, error) {
	return config.FromContext(ctx)
}
