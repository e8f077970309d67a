package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Load reads a catalog file. The extension picks the decoder: .yaml and
// .yml decode strictly, so unknown keys are errors; .cue is unified with
// the catalog schema and must be concrete.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c *Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		c, err = DecodeYAML(data)
	case ".cue":
		c, err = DecodeCUE(data, path)
	default:
		return nil, &ParseError{Field: "catalog", Message: fmt.Sprintf("unsupported extension %q (want .yaml, .yml or .cue)", ext)}
	}
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve catalog dir: %w", err)
	}
	c.Dir = abs
	c.resolve()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeYAML decodes a YAML catalog without resolving paths.
func DecodeYAML(data []byte) (*Catalog, error) {
	c := New()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, &ParseError{Field: "yaml", Message: err.Error()}
	}
	return c, nil
}

// DecodeCUE validates a CUE catalog against the embedded schema and
// decodes it without resolving paths. filename is only used in error
// positions.
func DecodeCUE(data []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fromCUE(err, "cue")
	}
	v = schema.LookupPath(cue.ParsePath("#Catalog")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(err, "schema")
	}

	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fromCUE(err, "cue")
	}
	c := New()
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, &ParseError{Field: "cue", Message: err.Error()}
	}
	return c, nil
}
