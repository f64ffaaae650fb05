package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load resolves the data directory and ancillary paths from the
// environment (after an optional .env bootstrap), then loads and
// validates the YAML strategy/risk/execution/ops/cities document at
// configPath. If configPath is empty, defaults are used with env-derived
// paths only.
func Load(configPath string, dataDirOverride ...string) (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	dataDir := os.Getenv("WXENGINE_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	}

	cfg := Default()
	if configPath != "" {
		loaded, err := loadYAML(configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	cfg.DataDir = dataDir
	cfg.PIDFile = filepath.Join(dataDir, "wxengine.pid")
	cfg.LogDir = envOr("WXENGINE_LOG_DIR", filepath.Join(dataDir, "logs"))
	cfg.DBPath = envOr("WXENGINE_DB_PATH", filepath.Join(dataDir, "engine.db"))

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadYAML(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	if err := checkKnownKeys(reflect.TypeOf(Config{}), doc, ""); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if len(cfg.Cities) == 0 {
		cfg.Cities = DefaultCities()
	}
	return cfg, nil
}

// checkKnownKeys recursively rejects any map key in doc that has no
// corresponding yaml-tagged field on t. This reproduces the original
// schema's model_config = {"extra": "forbid"} behavior, which
// yaml.v3's UnmarshalStrict cannot express for arbitrary nested maps.
func checkKnownKeys(t reflect.Type, doc map[string]any, path string) error {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	allowed := map[string]reflect.StructField{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("yaml")
		name := strings.Split(tag, ",")[0]
		if name == "" || name == "-" {
			continue
		}
		allowed[name] = f
	}

	for key, val := range doc {
		field, ok := allowed[key]
		if !ok {
			loc := key
			if path != "" {
				loc = path + "." + key
			}
			return fmt.Errorf("unknown config key %q", loc)
		}

		ft := field.Type
		childPath := key
		if path != "" {
			childPath = path + "." + key
		}

		switch ft.Kind() {
		case reflect.Struct:
			if sub, ok := val.(map[string]any); ok {
				if err := checkKnownKeys(ft, sub, childPath); err != nil {
					return err
				}
			}
		case reflect.Slice:
			elem := ft.Elem()
			if elem.Kind() == reflect.Struct {
				items, ok := val.([]any)
				if !ok {
					continue
				}
				for i, item := range items {
					sub, ok := item.(map[string]any)
					if !ok {
						continue
					}
					if err := checkKnownKeys(elem, sub, fmt.Sprintf("%s[%d]", childPath, i)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Hash returns a deterministic content fingerprint of cfg, used to dedup
// config_snapshots rows. Two semantically equal configs hash identically.
func Hash(cfg Config) (string, error) {
	// Only the YAML-tagged tree participates; DataDir/PIDFile/LogDir/DBPath
	// are deployment-local, so they are cleared on this copy before
	// encoding (json.Marshal ignores `yaml:"-"` tags). Key names are
	// irrelevant to hash stability as long as they are deterministic,
	// which Go's map-free struct encoding guarantees.
	cfg.DataDir, cfg.PIDFile, cfg.LogDir, cfg.DBPath = "", "", "", ""
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("config: hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}

// Get resolves a dotted path (e.g. "risk.max_position_size_usd") against
// cfg's YAML-tagged fields and returns its current value.
func Get(cfg Config, dottedKey string) (any, error) {
	v := reflect.ValueOf(cfg)
	return getField(v, strings.Split(dottedKey, "."), dottedKey)
}

func getField(v reflect.Value, parts []string, full string) (any, error) {
	if len(parts) == 0 {
		return v.Interface(), nil
	}
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("config: %q is not a struct at %q", full, parts[0])
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name == parts[0] {
			return getField(v.Field(i), parts[1:], full)
		}
	}
	return nil, fmt.Errorf("config: unknown key %q", full)
}

// Set resolves a dotted path, coerces value (a string, as operator
// commands always supply one) to the field's static type, and returns a
// new validated Config with that field replaced.
func Set(cfg Config, dottedKey string, value string) (Config, error) {
	out := cfg
	v := reflect.ValueOf(&out).Elem()
	if err := setField(v, strings.Split(dottedKey, "."), value, dottedKey); err != nil {
		return Config{}, err
	}
	if err := Validate(out); err != nil {
		return Config{}, err
	}
	return out, nil
}

func setField(v reflect.Value, parts []string, raw string, full string) error {
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("config: %q is not a struct", full)
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name != parts[0] {
			continue
		}
		fv := v.Field(i)
		if len(parts) > 1 {
			return setField(fv, parts[1:], raw, full)
		}
		switch fv.Kind() {
		case reflect.Float64:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("config: %q: not a float: %w", full, err)
			}
			fv.SetFloat(n)
		case reflect.Int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("config: %q: not an int: %w", full, err)
			}
			fv.SetInt(int64(n))
		case reflect.Bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("config: %q: not a bool: %w", full, err)
			}
			fv.SetBool(b)
		case reflect.String:
			fv.SetString(raw)
		default:
			return fmt.Errorf("config: %q: unsupported field type %s", full, fv.Kind())
		}
		return nil
	}
	return fmt.Errorf("config: unknown key %q", full)
}
