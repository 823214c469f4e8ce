// Copyright 2024 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package conf loads the small named-value configuration document described
// in the configuration section of the specification: autorun,
// bundle_extension, device_regex and override_dir, each overridable by a
// CATERPILLAR_-prefixed environment variable.
package conf

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// knownKeys is the full set of configuration keys caterpillar understands;
// anything else found in the config file is rejected at startup rather than
// silently ignored.
var knownKeys = map[string]bool{
	"autorun":          true,
	"bundle_extension": true,
	"device_regex":     true,
	"override_dir":     true,
}

// Config is the immutable, validated configuration a session.Machine is
// built from.
type Config struct {
	Autorun         bool
	BundleExtension string
	DeviceRegex     *regexp.Regexp
	OverrideDir     string
}

// Load reads path, if non-empty, and overlays CATERPILLAR_-prefixed
// environment variables on top of it. An empty path means rely on the
// environment and the defaults below, which is enough to run under a
// container orchestrator that injects configuration purely through the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("autorun", false)
	v.SetDefault("bundle_extension", "raucb")
	v.SetDefault("device_regex", "^sd[a-z][0-9]+$")
	v.SetDefault("override_dir", "override")

	v.SetEnvPrefix("CATERPILLAR")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := rejectUnknownKeys(v.AllSettings()); err != nil {
			return nil, err
		}
	}

	rawRegex := v.GetString("device_regex")
	pattern, err := regexp.Compile(rawRegex)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling device_regex %q", rawRegex)
	}

	extension := v.GetString("bundle_extension")
	if extension == "" {
		return nil, errors.New("bundle_extension must not be empty")
	}

	return &Config{
		Autorun:         v.GetBool("autorun"),
		BundleExtension: extension,
		DeviceRegex:     pattern,
		OverrideDir:     v.GetString("override_dir"),
	}, nil
}

func rejectUnknownKeys(settings map[string]interface{}) error {
	var unknown []string
	for k := range settings {
		if !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Errorf("unknown configuration key(s): %s", strings.Join(unknown, ", "))
}
