// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/gomlx/leafscan/internal/config"
	"github.com/gomlx/leafscan/pkg/support/fsutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SettingsSeparator separates the nested names of a setting, e.g. "augment.flip_probability".
const SettingsSeparator = "."

var reInteger = regexp.MustCompile(`^-?[0-9][0-9_]*$`)

// ParseSettings from settings -- typically the contents of a flag set by the user.
// The settings are a list separated by ";": e.g.: "target=500;augment.flip_probability=0.3".
//
// The names are the YAML keys of config.Config, nested keys joined by SettingsSeparator. List values are
// separated by ",": e.g. "categories=healthy,white_scale".
//
// For integer values, "_" is removed: it allows one to enter large numbers using it as a separator, like
// in Go. E.g.: 1_000_000 = 1000000.
//
// A setting like "file:settings.txt" reads the settings from the file, one or more per line, with lines
// starting with "#" considered comments.
//
// It returns the names of the settings set. cfg is only modified if all settings are valid.
func ParseSettings(cfg *config.Config, settings string) (paramsSet []string, err error) {
	values, err := settingsMap(cfg)
	if err != nil {
		return nil, err
	}
	for _, setting := range strings.Split(settings, ";") {
		paramsSet, err = parseSetting(values, setting, paramsSet)
		if err != nil {
			return nil, err
		}
	}
	if len(paramsSet) == 0 {
		return
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode settings")
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	updated := *cfg
	if err = decoder.Decode(&updated); err != nil {
		return nil, errors.Wrapf(err, "invalid settings %q", settings)
	}
	*cfg = updated
	return
}

func parseSetting(values map[string]any, setting string, paramsSet []string) (newParamsSet []string, err error) {
	newParamsSet = paramsSet
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return
	}
	if strings.HasPrefix(setting, "file:") {
		// Read settings from a file.
		filePath := strings.TrimPrefix(setting, "file:")
		filePath, err = fsutil.ReplaceTildeInDir(filePath)
		if err != nil {
			return
		}
		var contents []byte
		contents, err = os.ReadFile(filePath)
		if err != nil {
			err = errors.Wrapf(err, "failed to read settings from file %q", filePath)
			return
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			for _, lineSetting := range strings.Split(line, ";") {
				newParamsSet, err = parseSetting(values, lineSetting, newParamsSet)
				if err != nil {
					return
				}
			}
		}
		return
	}

	key, valueStr, found := strings.Cut(setting, "=")
	if !found {
		err = errors.Errorf("can't parse setting %q: each setting requires the format \"<name>=<value>\"", setting)
		return
	}
	key = strings.TrimSpace(key)
	path := strings.Split(key, SettingsSeparator)
	parent, current, found := lookupSetting(values, path)
	if !found {
		err = errors.Errorf("can't set %q: unknown setting, the known ones are listed in --help", key)
		return
	}
	switch current.(type) {
	case map[string]any:
		err = errors.Errorf("can't set %q: it holds nested settings, set them individually", key)
		return
	case []any:
		var list []any
		for _, part := range strings.Split(valueStr, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, parseScalar(part))
			}
		}
		parent[path[len(path)-1]] = list
	default:
		parent[path[len(path)-1]] = parseScalar(strings.TrimSpace(valueStr))
	}
	newParamsSet = append(newParamsSet, key)
	return
}

// parseScalar converts the value to a number or boolean if it looks like one, or leaves it as a string.
// Type mismatches are reported when decoding into config.Config.
func parseScalar(valueStr string) any {
	if reInteger.MatchString(valueStr) {
		valueStr = strings.ReplaceAll(valueStr, "_", "")
	}
	var value any
	if err := yaml.Unmarshal([]byte(valueStr), &value); err != nil {
		return valueStr
	}
	switch value.(type) {
	case int, float64, bool:
		return value
	default:
		return valueStr
	}
}

// settingsMap converts cfg to a tree of YAML values.
func settingsMap(cfg *config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode configuration")
	}
	values := make(map[string]any)
	if err = yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	return values, nil
}

func lookupSetting(values map[string]any, path []string) (parent map[string]any, value any, found bool) {
	parent = values
	for ii, name := range path {
		value, found = parent[name]
		if !found || ii == len(path)-1 {
			return
		}
		var isMap bool
		parent, isMap = value.(map[string]any)
		if !isMap {
			return nil, nil, false
		}
	}
	return
}

// enumerateSettings calls fn for each leaf setting, in alphabetical order.
func enumerateSettings(values map[string]any, prefix string, fn func(key string, value any)) {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		key := prefix + name
		if nested, ok := values[name].(map[string]any); ok {
			enumerateSettings(nested, key+SettingsSeparator, fn)
			continue
		}
		fn(key, values[name])
	}
}

// SettingsUsage returns the description of a settings flag, listing the current values of cfg as defaults.
func SettingsUsage(cfg *config.Config) string {
	parts := []string{
		`Set configuration values, overriding the config file and the environment. ` +
			`It should be a list of elements "name=value" separated by ";". ` +
			fmt.Sprintf(`Nested names are joined by %q and list values are separated by ",". `, SettingsSeparator) +
			`It can also be given an entry like: "file:settings_file.txt", in ` +
			`which case the file will be read and the settings will be parsed, ` +
			`with new-lines working as ";" to separate settings and lines starting with "#" are considered comments. ` +
			`Current available settings:`,
	}
	values, err := settingsMap(cfg)
	if err != nil {
		return parts[0]
	}
	enumerateSettings(values, "", func(key string, value any) {
		parts = append(parts, fmt.Sprintf("%q: default value is %v", key, value))
	})
	return strings.Join(parts, "\n")
}

// SprintSettings pretty-prints the values of the configuration into a string, one per line.
func SprintSettings(cfg *config.Config) string {
	values, err := settingsMap(cfg)
	if err != nil {
		return fmt.Sprintf("\t<%v>", err)
	}
	var parts []string
	enumerateSettings(values, "", func(key string, value any) {
		parts = append(parts, fmt.Sprintf("\t%q: %v", key, value))
	})
	return strings.Join(parts, "\n")
}

// SprintModifiedSettings pretty-prints the values of the settings in paramsSet, as returned by ParseSettings.
func SprintModifiedSettings(cfg *config.Config, paramsSet []string) string {
	values, err := settingsMap(cfg)
	if err != nil {
		return fmt.Sprintf("\t<%v>", err)
	}
	paramsSet = slices.Clone(paramsSet)
	slices.Sort(paramsSet)
	paramsSet = slices.Compact(paramsSet)
	var parts []string
	for _, key := range paramsSet {
		_, value, found := lookupSetting(values, strings.Split(key, SettingsSeparator))
		if !found {
			continue
		}
		parts = append(parts, fmt.Sprintf("\t%q: %v", key, value))
	}
	return strings.Join(parts, "\n")
}
