// Package command builds external program invocations for the speech backends.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/google/shlex"
)

// ErrNoCommand is returned when a Spec has no program configured.
var ErrNoCommand = errors.New("no command configured")

// Spec describes a program plus argument template. Arguments may contain
// ${name} placeholders which are expanded per invocation.
type Spec struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Build returns a command ready to start. Placeholders in args are expanded
// from vars; vars are also exported as AGRIVOICE_<NAME> environment variables.
func (s Spec) Build(ctx context.Context, vars map[string]string) (*exec.Cmd, error) {
	if strings.TrimSpace(s.Command) == "" {
		return nil, ErrNoCommand
	}
	raw, err := normalizeArgs(s.Args)
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, len(raw))
	for _, a := range raw {
		args = append(args, Expand(a, vars))
	}
	cmd := exec.CommandContext(ctx, os.ExpandEnv(s.Command), args...)
	cmd.Env = os.Environ()
	for k, v := range s.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, fmt.Sprintf("AGRIVOICE_%s=%s", strings.ToUpper(k), vars[k]))
	}
	return cmd, nil
}

// Uses reports whether any argument references the ${name} placeholder.
func (s Spec) Uses(name string) bool {
	token := "${" + name + "}"
	for _, a := range s.Args {
		if strings.Contains(a, token) {
			return true
		}
	}
	return false
}

// Expand replaces ${name} placeholders with values from vars. Unknown
// placeholders are left as-is.
func Expand(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}

// ParseArgs allows args to be configured as a single string.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}

func normalizeArgs(args []string) ([]string, error) {
	if len(args) == 1 && strings.ContainsAny(args[0], " \t") && !strings.Contains(args[0], "${") {
		return ParseArgs(args[0])
	}
	return args, nil
}

// Resolve returns the executable path for cmd. Explicit paths must exist and
// be executable; bare names are searched on PATH.
func Resolve(cmd string) (string, error) {
	if cmd == "" {
		return "", ErrNoCommand
	}
	path := os.ExpandEnv(cmd)
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", path)
		}
		if info.Mode().Perm()&0o111 == 0 {
			return "", fmt.Errorf("%s is not executable", path)
		}
		return path, nil
	}
	return exec.LookPath(path)
}
