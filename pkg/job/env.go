// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package job

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR}, ${VAR:-default}, and $VAR.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnv recursively expands environment references in every string value
// of a decoded YAML map. Unlike the zero-config loader this package is
// grounded on, an unresolved ${VAR} with no default is a load error rather
// than an empty substitution — job definitions must not silently deploy
// with blank credentials or hosts.
func expandEnv(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			exp, err := expandEnv(item)
			if err != nil {
				return nil, err
			}
			out[k] = exp
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			exp, err := expandEnv(item)
			if err != nil {
				return nil, err
			}
			out[i] = exp
		}
		return out, nil
	default:
		return v, nil
	}
}

func expandEnvString(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var firstErr error
	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if idx := strings.Index(inner, ":-"); idx != -1 {
				varName := inner[:idx]
				defaultVal := inner[idx+2:]
				if val, ok := os.LookupEnv(varName); ok {
					return val
				}
				return defaultVal
			}
			val, ok := os.LookupEnv(inner)
			if !ok {
				firstErr = fmt.Errorf("unresolved environment reference ${%s}", inner)
				return match
			}
			return val
		}

		varName := match[1:]
		val, ok := os.LookupEnv(varName)
		if !ok {
			firstErr = fmt.Errorf("unresolved environment reference $%s", varName)
			return match
		}
		return val
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
