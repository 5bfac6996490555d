// Package config layers rsmlwatch's runtime settings.
//
// Precedence, highest first: command-line flags, RSML_* environment
// variables, an optional rsml.toml / rsml.yaml / rsml.json file in the input
// directory, then built-in defaults. Relative paths read from the settings
// file are resolved against the file's directory; relative paths from flags
// or the environment are left for the caller to resolve against the working
// directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys. Flags bound by Load use the same names.
const (
	KeyOutput  = "output"
	KeyLuaurc  = "luaurc"
	KeySettle  = "settle"
	KeyServe   = "serve"
	KeyIgnore  = "ignore"
	KeyLogFile = "log-file"
	KeyQuiet   = "quiet"
	KeyColor   = "color"
)

// EnvPrefix is prepended to environment variable names (RSML_LOG_FILE).
const EnvPrefix = "RSML"

// FileName is the settings file name without extension.
const FileName = "rsml"

// ErrInvalidSetting is returned when a setting has an unusable value.
var ErrInvalidSetting = errors.New("invalid setting")

// DefaultIgnore are the globs skipped when no ignore setting is given.
var DefaultIgnore = []string{"**/.git", "**/node_modules"}

// Settings is the resolved configuration for one run.
type Settings struct {
	// Output is the output directory; empty means next to the sources.
	Output string
	// Luaurc is an explicit alias configuration path.
	Luaurc string
	// Settle is the window after startup during which events are ignored.
	Settle time.Duration
	// Serve is the notification server address; empty disables it.
	Serve string
	// Ignore lists doublestar globs relative to the input directory.
	Ignore []string
	// LogFile sends logs to a rotated file instead of stderr.
	LogFile string
	Quiet   bool
	// Color is auto, on or off.
	Color string

	// File is the settings file that was read, if any.
	File string
}

// Load reads settings for inputDir. flags may be nil; every flag in it whose
// name matches a setting key is bound.
func Load(inputDir string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeyLuaurc, "")
	v.SetDefault(KeySettle, 200*time.Millisecond)
	v.SetDefault(KeyServe, "")
	v.SetDefault(KeyIgnore, DefaultIgnore)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyQuiet, false)
	v.SetDefault(KeyColor, "auto")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(FileName)
	v.AddConfigPath(inputDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	keys := []string{KeyOutput, KeyLuaurc, KeySettle, KeyServe, KeyIgnore, KeyLogFile, KeyQuiet, KeyColor}
	if flags != nil {
		for _, key := range keys {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", key, err)
				}
			}
		}
	}

	s := &Settings{
		Output:  v.GetString(KeyOutput),
		Luaurc:  v.GetString(KeyLuaurc),
		Settle:  v.GetDuration(KeySettle),
		Serve:   v.GetString(KeyServe),
		Ignore:  v.GetStringSlice(KeyIgnore),
		LogFile: v.GetString(KeyLogFile),
		Quiet:   v.GetBool(KeyQuiet),
		Color:   strings.ToLower(v.GetString(KeyColor)),
		File:    v.ConfigFileUsed(),
	}

	if s.File != "" {
		dir := filepath.Dir(s.File)
		for key, field := range map[string]*string{KeyOutput: &s.Output, KeyLuaurc: &s.Luaurc, KeyLogFile: &s.LogFile} {
			if *field == "" || filepath.IsAbs(*field) || !fromFile(v, flags, key) {
				continue
			}
			*field = filepath.Join(dir, *field)
		}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// fromFile reports whether the settings file supplied key's value.
func fromFile(v *viper.Viper, flags *pflag.FlagSet, key string) bool {
	if flags != nil && flags.Changed(key) {
		return false
	}
	if _, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))); ok {
		return false
	}
	return v.InConfig(key)
}

func (s *Settings) validate() error {
	switch s.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("%w: color must be auto, on or off, got %q", ErrInvalidSetting, s.Color)
	}
	if s.Settle < 0 {
		return fmt.Errorf("%w: settle must not be negative, got %s", ErrInvalidSetting, s.Settle)
	}
	return nil
}
