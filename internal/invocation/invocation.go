package invocation

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oppnys/oppnys/internal/branding"
	"github.com/oppnys/oppnys/pkg/clierr"
)

// EnvSuffix names the environment variable carrying the encoded context,
// prefixed with the CLI's env prefix.
const EnvSuffix = "INVOCATION"

// EnvVar returns the full environment variable name, e.g. CLI_INVOCATION.
func EnvVar() string {
	return branding.EnvVar(EnvSuffix)
}

// Context is the serializable description of one command invocation.
type Context struct {
	Command string         `json:"command"`
	Args    []string       `json:"args"`
	Options map[string]any `json:"options"`
	Cwd     string         `json:"cwd,omitempty"`
}

// New builds a context after stripping and checking opts.
func New(command string, args []string, opts map[string]any) (*Context, error) {
	clean, err := Strip(opts)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []string{}
	}
	cwd, _ := os.Getwd()
	return &Context{Command: command, Args: args, Options: clean, Cwd: cwd}, nil
}

// FromCommand builds a context from a parsed cobra command. Only the flags
// named in allow are copied, looked up among the command's local and
// inherited flags; everything else the command carries is ignored.
func FromCommand(cmd *cobra.Command, args []string, allow ...string) (*Context, error) {
	opts := make(map[string]any, len(allow))
	for _, name := range allow {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.InheritedFlags().Lookup(name)
		}
		if f == nil {
			continue
		}
		v, err := flagValue(cmd, f)
		if err != nil {
			return nil, err
		}
		opts[name] = v
	}
	return New(cmd.Name(), args, opts)
}

func flagValue(cmd *cobra.Command, f *pflag.Flag) (any, error) {
	fs := cmd.Flags()
	switch f.Value.Type() {
	case "bool":
		return fs.GetBool(f.Name)
	case "string":
		return fs.GetString(f.Name)
	case "int":
		return fs.GetInt(f.Name)
	case "int64":
		return fs.GetInt64(f.Name)
	case "float64":
		return fs.GetFloat64(f.Name)
	case "count":
		return fs.GetCount(f.Name)
	default:
		return nil, clierr.Newf(clierr.KindConfiguration, "invocation",
			"flag --%s has non-primitive type %s", f.Name, f.Value.Type())
	}
}

// Strip returns a copy of opts without bookkeeping keys. It fails when a
// remaining value is not a primitive (nil, bool, string or number).
func Strip(opts map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(opts))
	var bad []string
	for k, v := range opts {
		if strings.HasPrefix(k, "_") || k == "parent" {
			continue
		}
		if !isPrimitive(v) {
			bad = append(bad, fmt.Sprintf("%s (%T)", k, v))
			continue
		}
		out[k] = v
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, clierr.Newf(clierr.KindConfiguration, "invocation",
			"options must be primitive values: %s", strings.Join(bad, ", "))
	}
	return out, nil
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Argv returns the list handed to the command function: the positional
// arguments followed by the options map.
func (c *Context) Argv() []any {
	argv := make([]any, 0, len(c.Args)+1)
	for _, a := range c.Args {
		argv = append(argv, a)
	}
	opts := c.Options
	if opts == nil {
		opts = map[string]any{}
	}
	return append(argv, opts)
}

// Encode strips the options again and returns the context as JSON.
func (c *Context) Encode() (string, error) {
	clean, err := Strip(c.Options)
	if err != nil {
		return "", err
	}
	out := *c
	out.Options = clean
	if out.Args == nil {
		out.Args = []string{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", clierr.Configuration("invocation", fmt.Errorf("encoding context: %w", err))
	}
	return string(data), nil
}

// Environ returns base with the encoded context appended. Any inherited
// value of the variable is replaced.
func (c *Context) Environ(base []string) ([]string, error) {
	encoded, err := c.Encode()
	if err != nil {
		return nil, err
	}
	prefix := EnvVar() + "="
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if !strings.HasPrefix(kv, prefix) {
			env = append(env, kv)
		}
	}
	return append(env, prefix+encoded), nil
}

// Decode parses an encoded context.
func Decode(data string) (*Context, error) {
	if strings.TrimSpace(data) == "" {
		return nil, clierr.Newf(clierr.KindConfiguration, "invocation", "empty invocation context")
	}
	var c Context
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, clierr.Configuration("invocation", fmt.Errorf("decoding context: %w", err))
	}
	if c.Options == nil {
		c.Options = map[string]any{}
	}
	if c.Args == nil {
		c.Args = []string{}
	}
	return &c, nil
}

// FromEnv decodes the context from the environment variable returned by
// EnvVar, read through getenv.
func FromEnv(getenv func(string) string) (*Context, error) {
	raw := getenv(EnvVar())
	if raw == "" {
		return nil, clierr.Newf(clierr.KindConfiguration, "invocation", "%s is not set", EnvVar())
	}
	return Decode(raw)
}
