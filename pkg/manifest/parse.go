package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Format is a manifest document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q", filepath.Ext(path))
	}
}

// hclFile is the top-level layout of an HCL manifest.
type hclFile struct {
	OnLoad  *string      `hcl:"on_load,optional"`
	Modules []*hclModule `hcl:"module,block"`
}

// hclModule mirrors the load block of one module. Every attribute is
// optional so a file can override part of a module defined elsewhere.
type hclModule struct {
	Name    string         `hcl:"name,label"`
	URL     *string        `hcl:"url,optional"`
	Version hcl.Expression `hcl:"version,optional"`
	Cache   *int           `hcl:"cache,optional"`
	After   []string       `hcl:"after,optional"`
	Kind    *string        `hcl:"kind,optional"`
}

// Parse decodes a document into a generic configuration map. The filename
// is only used in diagnostics.
func Parse(data []byte, format Format, filename string) (map[string]any, error) {
	switch format {
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML manifest %s: %w", filename, err)
		}
		v, err := yamlValue(&doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML manifest %s: %w", filename, err)
		}
		if v == nil {
			return map[string]any{}, nil
		}
		raw, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("YAML manifest %s: top level must be a mapping, got %T", filename, v)
		}
		return raw, nil

	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON manifest %s: %w", filename, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		return jsonNumbers(raw).(map[string]any), nil

	case FormatHCL:
		return parseHCL(data, filename)

	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

func parseHCL(data []byte, filename string) (map[string]any, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL manifest %s: %w", filename, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL manifest %s: %w", filename, diags)
	}

	raw := map[string]any{}
	if parsed.OnLoad != nil {
		raw["onLoad"] = *parsed.OnLoad
	}
	if len(parsed.Modules) == 0 {
		return raw, nil
	}

	modules := make(map[string]any, len(parsed.Modules))
	for _, block := range parsed.Modules {
		if _, dup := modules[block.Name]; dup {
			return nil, &ConfigurationError{Module: block.Name, Reason: "declared more than once in " + filename}
		}
		load := map[string]any{}
		if block.URL != nil {
			load["url"] = *block.URL
		}
		version, err := hclScalar(block.Version, data)
		if err != nil {
			return nil, &ConfigurationError{Module: block.Name, Field: "load.version", Reason: "invalid value in " + filename, Err: err}
		}
		if version != nil {
			load["version"] = version
		}
		if block.Cache != nil {
			load["cache"] = *block.Cache
		}
		if block.After != nil {
			after := make([]any, len(block.After))
			for i, a := range block.After {
				after[i] = a
			}
			load["after"] = after
		}
		if block.Kind != nil {
			load["kind"] = *block.Kind
		}
		modules[block.Name] = map[string]any{"load": load}
	}
	raw["modules"] = modules
	return raw, nil
}

// hclScalar evaluates a string or number attribute. Number literals keep
// their source spelling.
func hclScalar(expr hcl.Expression, src []byte) (any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	switch {
	case val.IsNull():
		return nil, nil
	case val.Type().Equals(cty.String):
		return val.AsString(), nil
	case val.Type().Equals(cty.Number):
		if lit, ok := expr.(*hclsyntax.LiteralValueExpr); ok {
			return Number(strings.TrimSpace(string(lit.SrcRange.SliceBytes(src)))), nil
		}
		return Number(val.AsBigFloat().Text('f', -1)), nil
	default:
		return nil, fmt.Errorf("expected a string or number, got %s", val.Type().FriendlyName())
	}
}

// ParseFile reads and parses a single manifest file.
func ParseFile(path string) (map[string]any, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return Parse(data, format, path)
}

// LoadFiles parses every path and merges the documents, earlier files
// taking precedence. The usual call is LoadFiles(user, defaults).
func LoadFiles(paths ...string) (map[string]any, error) {
	docs := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		doc, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return MergeAll(docs...), nil
}

// yamlValue converts a YAML node into generic values. Numeric scalars
// become Numbers spelled as written.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		var merged []map[string]any
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			v, err := yamlValue(val)
			if err != nil {
				return nil, err
			}
			if key.ShortTag() == "!!merge" {
				switch t := v.(type) {
				case map[string]any:
					merged = append(merged, t)
				case []any:
					for _, item := range t {
						if m, ok := item.(map[string]any); ok {
							merged = append(merged, m)
						}
					}
				}
				continue
			}
			out[key.Value] = v
		}
		// Explicit keys win over merged ones, earlier merge sources over later.
		for _, m := range merged {
			for k, v := range m {
				if _, ok := out[k]; !ok {
					out[k] = v
				}
			}
		}
		return out, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			return Number(n.Value), nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

// jsonNumbers replaces json.Number values with Numbers.
func jsonNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = jsonNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = jsonNumbers(inner)
		}
		return t
	case json.Number:
		return Number(t)
	default:
		return v
	}
}
