package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/mcbrc/rcrx/internal/configpaths"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit writes the effective settings of listen or transmit to a file
// that the config loaders of rcrx read back.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"listen,transmit"`
	Format  string `help:"Output format (json, yaml or toml)" default:"json"`
	Output  string `help:"Destination file path (defaults to <command>.<ext> in the current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

var templateCommands = map[string]func() any{
	"listen":   func() any { return &Listen{} },
	"transmit": func() any { return &Transmit{} },
}

// setting is one flag of a command as it appears in a config file.
type setting struct {
	path  []string
	help  string
	value any
}

func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	grammar, ok := templateCommands[c.Command]
	if !ok {
		return fmt.Errorf("unknown command %q; expected listen or transmit", c.Command)
	}

	settings, err := commandSettings(grammar())
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "json":
		data, err = json.MarshalIndent(nestSettings(settings), "", "  ")
	case "yaml":
		data, err = yamlTemplate(settings)
	case "toml":
		data, err = tomlTemplate(settings)
	}
	if err != nil {
		return fmt.Errorf("render %s template: %w", format, err)
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + configpaths.Ext(format)
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// commandSettings parses an empty command line into grammar so kong applies
// defaults and RCRX_* variables, then reads the flags back.
func commandSettings(grammar any) ([]setting, error) {
	parser, err := kong.New(grammar, kong.Name("rcrx"), kong.Exit(func(int) {}))
	if err != nil {
		return nil, err
	}
	ctx, err := parser.Parse(nil)
	if err != nil {
		return nil, err
	}

	var out []setting
	for _, f := range ctx.Flags() {
		if f.Name == "help" || f.Hidden {
			continue
		}
		// Unset strings and lists stay out: a path flag would resolve "" to the
		// working directory.
		if k := f.Target.Kind(); (k == reflect.String || k == reflect.Slice) && f.Target.Len() == 0 {
			continue
		}
		out = append(out, setting{
			path:  settingPath(f.Name),
			help:  f.Help,
			value: plainValue(f.Target),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i].path, ".") < strings.Join(out[j].path, ".")
	})
	return out, nil
}

// settingPath maps "radio.udp.base-port" to radio, udp, base_port: the
// nesting and key spelling the kong JSON resolver looks up.
func settingPath(flag string) []string {
	parts := strings.Split(flag, ".")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "-", "_")
	}
	return parts
}

func plainValue(v reflect.Value) any {
	if d, ok := v.Interface().(time.Duration); ok {
		return d.String()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Slice:
		items := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			items = append(items, plainValue(v.Index(i)))
		}
		return items
	default:
		return v.Interface()
	}
}

func nestSettings(settings []setting) map[string]any {
	root := map[string]any{}
	for _, s := range settings {
		m := root
		for _, k := range s.path[:len(s.path)-1] {
			sub, ok := m[k].(map[string]any)
			if !ok {
				sub = map[string]any{}
				m[k] = sub
			}
			m = sub
		}
		m[s.path[len(s.path)-1]] = s.value
	}
	return root
}

// yamlTemplate keeps flag order and puts each flag's help above its key.
func yamlTemplate(settings []setting) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range settings {
		m := root
		for _, k := range s.path[:len(s.path)-1] {
			m = yamlSection(m, k)
		}
		val := &yaml.Node{}
		if err := val.Encode(s.value); err != nil {
			return nil, err
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: s.path[len(s.path)-1], HeadComment: s.help}
		m.Content = append(m.Content, key, val)
	}
	return yaml.Marshal(root)
}

func yamlSection(parent *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(parent.Content); i += 2 {
		if parent.Content[i].Value == key {
			return parent.Content[i+1]
		}
	}
	sub := &yaml.Node{Kind: yaml.MappingNode}
	parent.Content = append(parent.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, sub)
	return sub
}

func tomlTemplate(settings []setting) ([]byte, error) {
	tree, err := toml.TreeFromMap(map[string]any{})
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		tree.SetPathWithComment(s.path, s.help, false, s.value)
	}
	return tree.Marshal()
}
