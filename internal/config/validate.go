package config

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/validation"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	if err := validation.ValidatePath(c.Database.Path); err != nil {
		return &errors.ValidationError{Field: "database.path", Value: c.Database.Path, Message: "invalid path", Err: err}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewValidation("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return errors.NewValidation("log.format", fmt.Sprintf("unknown format %q (json or text)", c.Log.Format))
	}

	if c.Parser.DriftTolerance <= 0 {
		return errors.NewValidation("parser.drift_tolerance", fmt.Sprintf("must be > 0 (got %d)", c.Parser.DriftTolerance))
	}
	styles := c.Parser.LabelStyles[:0]
	for _, s := range c.Parser.LabelStyles {
		if s = strings.TrimSpace(s); s != "" {
			styles = append(styles, s)
		}
	}
	c.Parser.LabelStyles = styles

	seen := make(map[string]bool)
	for i, ws := range c.WritingSystems {
		field := fmt.Sprintf("writing_systems[%d]", i)
		if err := validation.ValidateIdentifier(ws.ID); err != nil {
			return &errors.ValidationError{Field: field + ".id", Value: ws.ID, Message: "invalid id", Err: err}
		}
		if seen[ws.ID] {
			return errors.NewValidation(field+".id", fmt.Sprintf("duplicate writing system %q", ws.ID))
		}
		seen[ws.ID] = true
		if _, err := wsys.New(ws.ID, ws.Tag, ws.WordForming); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}

	if err := validation.ValidateIdentifier(c.DefaultWritingSystem); err != nil {
		return &errors.ValidationError{Field: "default_writing_system", Value: c.DefaultWritingSystem, Message: "invalid id", Err: err}
	}
	if !seen[c.DefaultWritingSystem] {
		if _, err := wsys.New(c.DefaultWritingSystem, "", ""); err != nil {
			return fmt.Errorf("default_writing_system: %w", err)
		}
	}
	return nil
}

// Registry builds the writing system registry. The default writing system
// is taken from WritingSystems when declared there, else built from its id.
func (c *Config) Registry() *wsys.Registry {
	var def *wsys.WritingSystem
	systems := make([]*wsys.WritingSystem, 0, len(c.WritingSystems))
	for _, decl := range c.WritingSystems {
		ws, err := wsys.New(decl.ID, decl.Tag, decl.WordForming)
		if err != nil {
			// Validate rejects these.
			continue
		}
		systems = append(systems, ws)
		if ws.ID == c.DefaultWritingSystem {
			def = ws
		}
	}
	if def == nil {
		def, _ = wsys.New(c.DefaultWritingSystem, "", "")
	}

	reg := wsys.NewRegistry(def)
	for _, ws := range systems {
		reg.Register(ws)
	}
	return reg
}

// LogLevel returns the configured level for logging.InitLogger.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// LogFormat returns the configured format for logging.InitLogger.
func (c *Config) LogFormat() logging.Format {
	return logging.ParseFormat(c.Log.Format)
}
