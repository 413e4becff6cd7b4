package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
)

// DefaultPath is read when no path is given and INTERLINEAR_CONFIG is unset.
const DefaultPath = "interlinear.yaml"

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
// The file is path, else $INTERLINEAR_CONFIG, else DefaultPath. A missing
// DefaultPath is not an error; configuration then comes from ENV and
// defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = os.Getenv("INTERLINEAR_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.NewParse("config", path, err.Error())
		}
	} else if explicit {
		return nil, errors.NewIO("read config", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: read env")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config: validate")
	}
	return &cfg, nil
}
