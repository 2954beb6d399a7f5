package cmd

import (
	"context"
	"os"

	"github.com/salmonumbrella/planview/internal/secrets"
	"github.com/salmonumbrella/planview/internal/source"
)

var (
	openSecretsStore = secrets.OpenDefault
	envGet           = os.Getenv
	openPlanSource   = func(ctx context.Context, dsn string) (source.PlanSource, error) {
		s, err := source.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
)
