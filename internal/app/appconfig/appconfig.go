package appconfig

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/app/appcontext"
)

const EnvPrefix = "seqwindow"

func Parse(ctx appcontext.Ctx) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	var config ConfigSpec
	err = envconfig.Process(EnvPrefix, &config)
	if err != nil {
		_ = envconfig.Usage(EnvPrefix, &config)
		return nil, errors.Wrap(err, "failed to parse configuration. More info on how to configure seqwindow is located at https://pkg.go.dev/exusiai.dev/seqwindow/internal/app/appconfig#ConfigSpec")
	}

	return &Config{
		ConfigSpec: config,
		AppContext: ctx,
	}, nil
}
