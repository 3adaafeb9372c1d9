package commands

import (
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/statbank/pkg/query"
	yamlv3 "gopkg.in/yaml.v3"
)

// QuerySpec is a saved extraction: a table and a selection per dimension.
//
//	table: FOLK1A
//	format: CSV
//	selections:
//	  OMRÅDE: ["000", "101"]
//	  KØN: "*"
//	  Tid: all
//
// Ids with leading zeros must be quoted: YAML reads an unquoted 000 as the
// number 0.
type QuerySpec struct {
	Table      string                     `koanf:"table"`
	Format     string                     `koanf:"format"`
	Accept     bool                       `koanf:"accept"`
	Selections map[string]query.Selection `koanf:"selections"`
}

// savedSpec is the on-disk form written by SaveQuerySpec.
type savedSpec struct {
	Table      string              `yaml:"table"`
	Format     string              `yaml:"format,omitempty"`
	Selections map[string][]string `yaml:"selections"`
}

var selectionType = reflect.TypeOf(query.Selection{})

// selectionHook decodes a YAML scalar or list into a query.Selection.
// Strings go through query.ParseSelection, booleans select all or nothing,
// numbers select one value and lists select exactly their items.
func selectionHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != selectionType {
		return data, nil
	}
	switch v := data.(type) {
	case nil:
		return query.None(), nil
	case string:
		return query.ParseSelection(v), nil
	case bool:
		return query.Bool(v), nil
	case int:
		return query.SingleInt(v), nil
	case int64:
		return query.Single(strconv.FormatInt(v, 10)), nil
	case float64:
		return query.Single(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case []interface{}:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			ids = append(ids, fmt.Sprint(item))
		}
		return query.Many(ids...), nil
	case query.Selection:
		return v, nil
	}
	return nil, fmt.Errorf("cannot use %T as a selection", data)
}

// LoadQuerySpec reads a query spec file.
func LoadQuerySpec(path string) (*QuerySpec, error) {
	k := koanf.New("\x00")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading query spec %s: %w", path, err)
	}

	var spec QuerySpec
	if err := k.UnmarshalWithConf("", &spec, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       selectionHook,
			Result:           &spec,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("invalid query spec %s: %w", path, err)
	}
	return &spec, nil
}

// SaveQuerySpec writes the builder's current selections as a spec file.
func SaveQuerySpec(path string, b *query.Builder, format query.Format) error {
	spec := savedSpec{
		Table:      b.TableID(),
		Format:     string(format),
		Selections: b.Selections(),
	}
	data, err := yamlv3.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode query spec: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write query spec: %w", err)
	}
	return nil
}
