package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

const configDirVar = "APP_CONFIG_DIR"

type localSource struct {
	dir          string
	configFiles  []string
	envOverrides map[string]interface{}
}

func pick(obj interface{}, path string) interface{} {
	val := obj
	for _, part := range strings.Split(path, "/") {
		node, ok := val.(map[string]interface{})
		if !ok {
			return nil
		}
		if val, ok = node[part]; !ok {
			return nil
		}
	}
	return val
}

func (s *localSource) GetParameters(ctx context.Context, params []param) (map[param]interface{}, error) {
	values := map[param]interface{}{}

	for _, configFile := range s.configFiles {
		buffer, err := os.ReadFile(filepath.Join(s.dir, configFile))
		if err != nil {
			if configFile != "default.json" {
				continue
			}
			return nil, err
		}
		var configData map[string]interface{}
		if err := json.Unmarshal(buffer, &configData); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse %v", configFile)
		}
		logger.Debug(ctx, "Reading params from %v", configFile)

		for _, p := range params {
			if paramVal := pick(configData, p.key()); paramVal != nil {
				values[p] = paramVal
			}
		}
	}

	if s.envOverrides != nil {
		for _, p := range params {
			envName, ok := pick(s.envOverrides, p.key()).(string)
			if !ok {
				continue
			}
			if envVal := os.Getenv(envName); envVal != "" {
				values[p] = envVal
			}
		}
	}

	return values, nil
}

// LocalOpt is an option of a local config source
type LocalOpt func(s *localSource)

// LocalOpts are options of a local source
var LocalOpts = struct {
	// WithDir option to set local dir to load config from
	WithDir func(dir string) LocalOpt

	// WithAppEnv option will sent the app env
	WithAppEnv func(appEnv AppEnv) LocalOpt
}{
	WithDir: func(dir string) LocalOpt {
		return func(s *localSource) {
			s.dir = dir
		}
	},
	WithAppEnv: func(appEnv AppEnv) LocalOpt {
		return func(s *localSource) {
			s.configFiles = append(s.configFiles, appEnv.Name+".json")
			if appEnv.Facet != "" {
				s.configFiles = append(s.configFiles, appEnv.Name+"-"+appEnv.Facet+".json")
			}
		}
	},
}

func defaultConfigDir() string {
	if dir := os.Getenv(configDirVar); dir != "" {
		return dir
	}
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("Can not resolve config dir")
	}
	return filepath.Join(file, "..", "..", "..", "..", "config")
}

// NewLocalSource creates a source that reads params from a local fs.
// It is similar to node-config, suports json and custom-environment-variables.json.
// The dir is resolved from APP_CONFIG_DIR or falls back to the project config dir
func NewLocalSource(opts ...LocalOpt) (Source, error) {
	source := &localSource{
		configFiles: []string{"default.json"},
		dir:         defaultConfigDir(),
	}

	for _, opt := range opts {
		opt(source)
	}

	overridesFilePath := filepath.Join(source.dir, "custom-environment-variables.json")
	if overridesBuffer, err := os.ReadFile(overridesFilePath); err == nil {
		envOverrides := map[string]interface{}{}
		if err := json.Unmarshal(overridesBuffer, &envOverrides); err != nil {
			return nil, errors.Wrap(err, "Failed to parse custom-environment-variables.json")
		}
		source.envOverrides = envOverrides
	}

	return source, nil
}
