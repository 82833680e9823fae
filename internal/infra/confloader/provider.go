package confloader

import (
	"bytes"
	"errors"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/v2"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: ReadBytes not supported by map provider, use Read() instead")

// mapProvider is a simple koanf provider that loads configuration from a map.
// Dotted keys such as "server.redis.addr" are expanded into nested maps.
type mapProvider map[string]any

// ReadBytes returns an error as map provider doesn't support byte serialization.
// Use Read() instead.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any)
	for k, v := range m {
		setPath(out, strings.Split(k, "."), v)
	}
	return out, nil
}

func setPath(m map[string]any, path []string, v any) {
	if len(path) == 1 {
		m[path[0]] = v
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[path[0]] = child
	}
	setPath(child, path[1:], v)
}

// tomlParser implements koanf.Parser with BurntSushi/toml.
type tomlParser struct{}

// TOMLParser returns a koanf parser for TOML documents.
func TOMLParser() koanf.Parser {
	return &tomlParser{}
}

// Unmarshal parses a TOML document into a nested map.
func (p *tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	out := make(map[string]any)
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal renders a nested map as TOML.
func (p *tomlParser) Marshal(m map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// structKeys returns every leaf key reachable through koanf tags of v,
// indexed by its flattened environment form ("server_redis_read_timeout").
func structKeys(v any) map[string]string {
	out := make(map[string]string)
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return out
	}
	walkKeys(t, "", out)
	return out
}

func walkKeys(t reflect.Type, prefix string, out map[string]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			walkKeys(ft, key, out)
			continue
		}
		out[strings.ReplaceAll(key, ".", "_")] = key
	}
}
