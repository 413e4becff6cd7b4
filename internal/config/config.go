// Package config loads interlinear settings from a YAML file and the
// environment.
package config

// Config is the root application configuration.
type Config struct {
	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
	Parser   Parser   `yaml:"parser"`

	// DefaultWritingSystem tags text that names no writing system.
	DefaultWritingSystem string `yaml:"default_writing_system" env:"DEFAULT_WS" env-default:"en"`

	WritingSystems []WritingSystem `yaml:"writing_systems"`
}

// Database holds SQLite settings.
type Database struct {
	Path string `yaml:"path" env:"INTERLINEAR_DB" env-default:"interlinear.db"`
}

// Log holds logging settings.
type Log struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Parser holds segmentation and reuse settings.
type Parser struct {
	DriftTolerance int      `yaml:"drift_tolerance" env:"PARSER_DRIFT_TOLERANCE" env-default:"100"`
	LabelStyles    []string `yaml:"label_styles"    env:"PARSER_LABEL_STYLES"    env-default:"Chapter Number,Verse Number" env-separator:","`
}

// WritingSystem declares one writing system. Tag defaults to ID.
type WritingSystem struct {
	ID          string `yaml:"id"`
	Tag         string `yaml:"tag"`
	WordForming string `yaml:"word_forming"`
}
