package commands

import (
	"context"

	"github.com/de-tools/soil-atlas/pkg/runtime/app"
)

// AppSource returns the application the command runs against, building it
// on first use.
type AppSource func(ctx context.Context) (*app.App, error)
