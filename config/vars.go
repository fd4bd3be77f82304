package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

func GetVarsFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ensemble", "vars.txt"), nil
}

func ensureVarsDir() error {
	path, err := GetVarsFilePath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0700)
}

func LoadVarsFromFile() (map[string]string, error) {
	vars := make(map[string]string)

	path, err := GetVarsFilePath()
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return vars, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			vars[parts[0]] = parts[1]
		}
	}

	return vars, scanner.Err()
}

func SaveVarsToFile(vars map[string]string) error {
	if err := ensureVarsDir(); err != nil {
		return err
	}

	path, err := GetVarsFilePath()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	for name, value := range vars {
		if _, err := fmt.Fprintf(file, "%s=%s\n", name, value); err != nil {
			return err
		}
	}

	return nil
}

func GetVar(name string) (string, error) {
	vars, err := LoadVarsFromFile()
	if err != nil {
		return "", err
	}
	value, ok := vars[name]
	if !ok {
		return "", fmt.Errorf("variable '%s' not found", name)
	}
	return value, nil
}

func SetVar(name, value string) error {
	vars, err := LoadVarsFromFile()
	if err != nil {
		return err
	}
	vars[name] = value
	return SaveVarsToFile(vars)
}

func DeleteVar(name string) error {
	vars, err := LoadVarsFromFile()
	if err != nil {
		return err
	}
	if _, ok := vars[name]; !ok {
		return fmt.Errorf("variable '%s' not found", name)
	}
	delete(vars, name)
	return SaveVarsToFile(vars)
}

func ListVars() ([]string, error) {
	vars, err := LoadVarsFromFile()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	return names, nil
}

var varPlaceholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// SubstituteString replaces ${NAME} placeholders in s.
// Priority: vars file > process environment. Placeholders with no value
// anywhere are left intact so callers can detect unresolved configuration.
func SubstituteString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	fileVars, err := LoadVarsFromFile()
	if err != nil {
		fileVars = map[string]string{}
	}
	return substituteIn(s, fileVars)
}

func substituteIn(s string, fileVars map[string]string) string {
	return varPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := fileVars[name]; ok {
			return value
		}
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

// SubstituteVars walks a document tree and applies SubstituteString to
// every string scalar, returning a new tree. The vars file is read once
// per call.
func SubstituteVars(node any) (any, error) {
	fileVars, err := LoadVarsFromFile()
	if err != nil {
		return nil, err
	}
	return substituteNode(node, fileVars), nil
}

func substituteNode(node any, fileVars map[string]string) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = substituteNode(child, fileVars)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = substituteNode(child, fileVars)
		}
		return out
	case string:
		return substituteIn(v, fileVars)
	default:
		return v
	}
}

// HasUnresolvedVars reports whether s still contains a ${NAME} placeholder.
func HasUnresolvedVars(s string) bool {
	return varPlaceholder.MatchString(s)
}
