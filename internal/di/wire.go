//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/KabriAcid/ScrynCard-sub001/internal/app"
	"github.com/KabriAcid/ScrynCard-sub001/internal/config"
)

func InitializeApp(ctx context.Context, cfg *config.Config, logging Logging) (*app.App, func(), error) {
	wire.Build(appSet)
	return nil, nil, nil
}

func InitializeToolkit(cfg *config.Config, logging Logging) (*Toolkit, func(), error) {
	wire.Build(toolkitSet)
	return nil, nil, nil
}
