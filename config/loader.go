// =============================================================================
// 📦 apiflow 配置加载
// =============================================================================
// 叠加顺序: DefaultConfig → YAML 文件 → 环境变量
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("apiflow.yaml").
//	    WithValidator((*config.Config).Validate).
//	    Load()
//
// =============================================================================
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes every environment variable the loader reads.
const DefaultEnvPrefix = "APIFLOW"

// Loader assembles a Config. The zero value is not usable; call NewLoader.
type Loader struct {
	path       string
	prefix     string
	lookup     func(string) (string, bool)
	validators []func(*Config) error
}

func NewLoader() *Loader {
	return &Loader{prefix: DefaultEnvPrefix, lookup: os.LookupEnv}
}

// WithConfigPath reads path as YAML. A missing file leaves the defaults.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.path = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.prefix = prefix
	return l
}

// WithLookup replaces os.LookupEnv as the environment source.
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// WithValidator runs v on the merged config. All validators run; their
// errors are joined.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load merges defaults, the file and the environment, then validates.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.decodeFile(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", l.path, err)
	}

	b := envBinder{lookup: l.lookup}
	b.bind(reflect.ValueOf(cfg).Elem(), l.prefix)
	if err := errors.Join(b.errs...); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	var errs []error
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) decodeFile(cfg *Config) error {
	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	// 未知字段视为错误，拼错的键不会被静默忽略
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// =============================================================================
// 🌱 环境变量绑定
// =============================================================================

var durationType = reflect.TypeOf(time.Duration(0))

// envBinder walks a config struct and overwrites every field whose variable
// is set and non-empty. It keeps going after a bad value so one run reports
// all of them.
type envBinder struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (b *envBinder) bind(v reflect.Value, prefix string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		name := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			b.bind(field, name)
			continue
		}
		raw, ok := b.lookup(name)
		if !ok || raw == "" {
			continue
		}
		if err := decodeEnv(field, raw); err != nil {
			b.errs = append(b.errs, fmt.Errorf("%s: %w", name, err))
		}
	}
}

// decodeEnv parses raw into field. Slices and maps use commas between
// items; map items are key=value.
func decodeEnv(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		v, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		field.Set(reflect.ValueOf(splitList(raw)))
	case reflect.Map:
		if field.Type() != reflect.TypeOf(map[string]string(nil)) {
			return fmt.Errorf("unsupported map type %s", field.Type())
		}
		m := make(map[string]string)
		for _, item := range splitList(raw) {
			k, val, ok := strings.Cut(item, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return fmt.Errorf("map item %q is not key=value", item)
			}
			m[strings.TrimSpace(k)] = strings.TrimSpace(val)
		}
		field.Set(reflect.ValueOf(m))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

// splitList splits on commas, trimming and dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
