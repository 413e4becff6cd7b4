package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interlinear.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
database:
  path: "/tmp/texts.db"
log:
  level: "debug"
  format: "json"
parser:
  drift_tolerance: 50
  label_styles: ["Verse Number", " Section Head ", ""]
default_writing_system: "kal"
writing_systems:
  - id: "kal"
    tag: "kl"
    word_forming: "'"
  - id: "grc"
    tag: "el"
  - id: "tr"
`

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTERLINEAR_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "interlinear.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 100, cfg.Parser.DriftTolerance)
	assert.Equal(t, []string{"Chapter Number", "Verse Number"}, cfg.Parser.LabelStyles)
	assert.Equal(t, "en", cfg.DefaultWritingSystem)
	assert.Empty(t, cfg.WritingSystems)

	reg := cfg.Registry()
	assert.Equal(t, "en", reg.Default().ID)
	assert.Equal(t, []string{"en"}, reg.IDs())
}

func TestLoad_ValidYAML(t *testing.T) {
	cfg, err := Load(writeYAML(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/texts.db", cfg.Database.Path)
	assert.Equal(t, logging.LevelDebug, cfg.LogLevel())
	assert.Equal(t, logging.FormatJSON, cfg.LogFormat())
	assert.Equal(t, 50, cfg.Parser.DriftTolerance)
	assert.Equal(t, []string{"Verse Number", "Section Head"}, cfg.Parser.LabelStyles)

	reg := cfg.Registry()
	assert.Equal(t, "kal", reg.Default().ID)
	assert.Equal(t, []string{"grc", "kal", "tr"}, reg.IDs())
	assert.True(t, reg.Default().IsWordForming('\''))

	tr, ok := reg.Get("tr")
	require.True(t, ok)
	assert.Equal(t, "ıi", tr.ToLower("Iİ"))
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, validYAML)
	t.Setenv("PARSER_DRIFT_TOLERANCE", "7")
	t.Setenv("INTERLINEAR_DB", "/srv/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Parser.DriftTolerance)
	assert.Equal(t, "/srv/override.db", cfg.Database.Path)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	t.Setenv("INTERLINEAR_CONFIG", writeYAML(t, validYAML))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "kal", cfg.DefaultWritingSystem)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr), "error = %v", err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeYAML(t, "parser: [unclosed"))
	var perr *errors.ParseError
	assert.True(t, errors.As(err, &perr), "error = %v", err)
}

func TestLoad_InvalidValueIsWrapped(t *testing.T) {
	_, err := Load(writeYAML(t, "parser:\n  drift_tolerance: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: validate: ")

	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr), "error = %v", err)
	assert.Equal(t, "parser.drift_tolerance", verr.Field)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:             Database{Path: "interlinear.db"},
			Log:                  Log{Level: "info", Format: "text"},
			Parser:               Parser{DriftTolerance: 100},
			DefaultWritingSystem: "en",
			WritingSystems:       []WritingSystem{{ID: "grc", Tag: "el"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero drift tolerance", func(c *Config) { c.Parser.DriftTolerance = 0 }, "parser.drift_tolerance"},
		{"negative drift tolerance", func(c *Config) { c.Parser.DriftTolerance = -3 }, "parser.drift_tolerance"},
		{"bad writing system id", func(c *Config) { c.WritingSystems[0].ID = "9x" }, "writing_systems[0].id"},
		{"duplicate writing system", func(c *Config) {
			c.WritingSystems = append(c.WritingSystems, WritingSystem{ID: "grc"})
		}, "writing_systems[1].id"},
		{"bad tag", func(c *Config) { c.WritingSystems[0].Tag = "not a tag!" }, "tag"},
		{"bad default id", func(c *Config) { c.DefaultWritingSystem = "" }, "default_writing_system"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "error = %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}
