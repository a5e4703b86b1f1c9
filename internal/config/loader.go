package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/camposclima/heliomorph/pkg/support/configbinder"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
	// RunOverrides are key=value run parameters from the command line, bound
	// onto RunConfig after YAML and environment merging.
	RunOverrides map[string]interface{} `name:"runOverrides" optional:"true"`
}

// loadConfig loads configuration from the embedded YAML and environment
// variables on top of the compiled-in defaults. Called once at startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	// Unmarshal the embedded YAML directly over the defaults. Absent keys
	// leave the default values untouched; declared connection entries replace
	// the default entry for the same name wholesale.
	if err := yaml.Unmarshal(embeddedConfig, cfg); err != nil {
		return nil, exception.New(moduleName, exception.KindConfig, "failed to unmarshal embedded config", err)
	}

	// Environment variables win over both defaults and YAML.
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.New(moduleName, exception.KindConfig, "failed to load config from environment variables", err)
	}

	cfg.EmbeddedConfig = embeddedConfig
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also sets the global logger level and validates the run window.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Heliomorph.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Heliomorph.System.Logging.Level)

	if len(params.RunOverrides) > 0 {
		if err := configbinder.BindProperties(params.RunOverrides, &cfg.Heliomorph.Run); err != nil {
			return nil, exception.New(moduleName, exception.KindConfig, "failed to apply run overrides", err)
		}
		logger.Infof("Applied %d run parameter override(s) from the command line.", len(params.RunOverrides))
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfig loads configuration from the embedded YAML and environment
// variables. Exposed for tests and non-fx callers.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// Validate checks the invariants the pipeline depends on before any work is
// scheduled. Everything here is a configuration mistake, not a data problem.
func Validate(cfg *Config) error {
	h := &cfg.Heliomorph
	if h.Run.Model == "" {
		return exception.Newf(moduleName, exception.KindConfig, "run.model must not be empty")
	}
	if len(h.Run.Scenarios) == 0 {
		return exception.Newf(moduleName, exception.KindConfig, "run.scenarios must list at least one scenario")
	}
	if h.Run.Years.From > h.Run.Years.To {
		return exception.Newf(moduleName, exception.KindConfig, "run.years is inverted: %d > %d", h.Run.Years.From, h.Run.Years.To)
	}
	if h.Run.Baseline.From > h.Run.Baseline.To {
		return exception.Newf(moduleName, exception.KindConfig, "run.baseline is inverted: %d > %d", h.Run.Baseline.From, h.Run.Baseline.To)
	}
	if h.Run.Workers <= 0 {
		return exception.Newf(moduleName, exception.KindConfig, "run.workers must be positive, got %d", h.Run.Workers)
	}
	if h.Site.Latitude < -90 || h.Site.Latitude > 90 {
		return exception.Newf(moduleName, exception.KindConfig, "site.latitude out of range: %g", h.Site.Latitude)
	}
	if h.Morph.TargetPeakWm2 <= 0 {
		return exception.Newf(moduleName, exception.KindConfig, "morph.target_peak_wm2 must be positive, got %g", h.Morph.TargetPeakWm2)
	}
	if h.Validation.MAPEThresholdPct <= 0 {
		return exception.Newf(moduleName, exception.KindConfig, "validation.mape_threshold_pct must be positive, got %g", h.Validation.MAPEThresholdPct)
	}
	if _, ok := h.Databases[ResultsDBRef]; !ok {
		return exception.Newf(moduleName, exception.KindConfig, "database.%s connection is not configured", ResultsDBRef)
	}
	if _, ok := h.Storages[ArtifactStorageRef]; !ok {
		return exception.Newf(moduleName, exception.KindConfig, "storage.%s connection is not configured", ArtifactStorageRef)
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables, using the "yaml" tag to derive the variable name
// (e.g. heliomorph.run.model -> HELIOMORPH_RUN_MODEL).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Struct {
			// map[string]struct fields accept nested variables, e.g.
			// HELIOMORPH_DATABASE_RESULTS_HOST.
			if err := loadMapOfStructsFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOfStructsFromEnv loads fields of type map[string]struct from
// environment variables, inferring the map key and struct field from the
// variable name (HELIOMORPH_DATABASE_RESULTS_HOST -> key "results", field
// with yaml tag "host").
func loadMapOfStructsFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}

	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}

		keyPartWithValue := strings.TrimPrefix(env, prefix)
		parts := strings.SplitN(keyPartWithValue, "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := parts[0]
		envValue := parts[1]

		keyAndFieldParts := strings.SplitN(keyAndField, "_", 2)
		if len(keyAndFieldParts) < 2 {
			continue
		}
		mapKey := strings.ToLower(keyAndFieldParts[0])
		structFieldName := keyAndFieldParts[1]

		structVal := mapField.MapIndex(reflect.ValueOf(mapKey))
		var elem reflect.Value
		if structVal.IsValid() {
			elem = reflect.New(elemType).Elem()
			elem.Set(structVal)
		} else {
			elem = reflect.New(elemType).Elem()
		}

		if err := setStructFieldFromEnv(elem, structFieldName, envValue); err != nil {
			return err
		}
		mapField.SetMapIndex(reflect.ValueOf(mapKey), elem)
	}
	return nil
}

// setStructFieldFromEnv sets one struct field matched case-insensitively
// against its yaml tag. Unknown field names are ignored.
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := structVal.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, fieldName) {
			return setField(field, value)
		}
	}
	return nil
}

// setField converts a string environment value onto a scalar field.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			items := strings.Split(value, ",")
			for i := range items {
				items[i] = strings.TrimSpace(items[i])
			}
			field.Set(reflect.ValueOf(items))
		}
	}
	return nil
}
