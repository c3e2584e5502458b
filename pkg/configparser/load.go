package configparser

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadAndParseYaml loads the YAML file into the environment and then fills
// cfg from the environment. cfg must be a pointer to a struct.
func LoadAndParseYaml(filepath string, cfg any) error {
	if err := LoadYamlFile(filepath); err != nil {
		return err
	}
	return Parse(cfg)
}

// LoadYamlFile reads a YAML file and exports its leaves as environment
// variables. Nested keys are joined with "_" and upper-cased, so
//
//	backend:
//	  base_url: http://localhost:3000
//
// becomes BACKEND_BASE_URL. Variables that are already set are left alone.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	vars, err := Flatten(data)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, vars[key]); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}

	return nil
}

// Flatten decodes YAML data and returns its leaves keyed by env var name.
func Flatten(data []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}

	out := make(map[string]string)
	flatten("", root, out)
	return out, nil
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(joinKey(prefix, k), child, out)
		}
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, expand(fmt.Sprint(item)))
		}
		out[prefix] = strings.Join(items, ",")
	case nil:
		// "key:" without a value carries nothing
	default:
		out[prefix] = expand(fmt.Sprint(v))
	}
}

func joinKey(prefix, key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

// expand resolves the ${VAR:-default} form against the current environment.
func expand(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}

	inner := value[2 : len(value)-1]
	name, def, _ := strings.Cut(inner, ":-")
	if env := os.Getenv(strings.TrimSpace(name)); env != "" {
		return env
	}
	return strings.TrimSpace(def)
}
