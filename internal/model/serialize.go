package model

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jward/apisurface/internal/apierr"
)

// SchemaVersion is the persisted format version written by this package.
const SchemaVersion = 1

// Metadata describes the tool that wrote a persisted package.
type Metadata struct {
	ToolPackage   string `json:"toolPackage"`
	ToolVersion   string `json:"toolVersion"`
	SchemaVersion int    `json:"schemaVersion"`
}

// serialize builds the record for it. Keys present are exactly those of the
// kind's traits plus "kind" and "canonicalReference".
func serialize(it *Item) record {
	rec := record{
		"kind":               string(it.kind),
		"canonicalReference": it.CanonicalReference(),
	}
	for _, t := range catalog[it.kind].traits {
		traitImpls[t].write(it, rec)
	}
	return rec
}

// deserialize reads a record back into an item. The kind selects the traits
// that read their fields into a fresh Options, then the item is constructed
// as in New.
func deserialize(raw json.RawMessage) (*Item, error) {
	var rec rawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	var kind Kind
	if err := readField(rec, "kind", &kind); err != nil {
		return nil, err
	}
	def, ok := catalog[kind]
	if !ok {
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	var opts Options
	for _, t := range def.traits {
		if err := traitImpls[t].read(rec, &opts); err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, t, err)
		}
	}
	return New(kind, opts)
}

// Marshal serializes it and its members as indented JSON.
func Marshal(it *Item) ([]byte, error) {
	return json.MarshalIndent(serialize(it), "", "  ")
}

// Unmarshal reconstructs an item from its serialized form. Malformed input
// fails with CodeMalformedModel.
func Unmarshal(data []byte) (*Item, error) {
	it, err := deserialize(data)
	if err != nil {
		if apierr.GetCode(err) == apierr.CodeMalformedModel {
			return nil, err
		}
		return nil, apierr.Wrap(apierr.CodeMalformedModel, err, "decode item")
	}
	return it, nil
}

// SavePackage writes pkg with a metadata header.
func SavePackage(w io.Writer, pkg *Item, meta Metadata) error {
	if pkg.kind != KindPackage {
		return apierr.New(apierr.CodeKindMismatch, "SavePackage requires a Package, got %s", pkg.kind)
	}
	if meta.SchemaVersion == 0 {
		meta.SchemaVersion = SchemaVersion
	}
	rec := serialize(pkg)
	rec["metadata"] = meta
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("save package %s: %w", pkg.f.name, err)
	}
	return nil
}

// LoadPackage reads a persisted package. Any malformed content is a hard
// failure; a schema newer than SchemaVersion is rejected.
func LoadPackage(r io.Reader) (*Item, *Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("load package: %w", err)
	}
	var head struct {
		Kind     Kind      `json:"kind"`
		Metadata *Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, nil, apierr.Wrap(apierr.CodeMalformedModel, err, "load package")
	}
	if head.Kind != KindPackage {
		return nil, nil, apierr.New(apierr.CodeMalformedModel, "load package: expected kind Package, got %q", head.Kind)
	}
	meta := head.Metadata
	if meta == nil {
		meta = &Metadata{SchemaVersion: SchemaVersion}
	}
	if meta.SchemaVersion > SchemaVersion {
		return nil, nil, apierr.New(apierr.CodeUnsupportedSchema,
			"load package: schema version %d is newer than supported %d", meta.SchemaVersion, SchemaVersion)
	}
	pkg, err := Unmarshal(data)
	if err != nil {
		return nil, nil, err
	}
	return pkg, meta, nil
}
