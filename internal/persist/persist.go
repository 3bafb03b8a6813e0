// Package persist saves and loads state artifacts in two forms: a compact
// protowire encoding and an indented JSON document. Both are addressed by a
// directory and a name and carry the format version they were written with.
//
// Dates are stored as day numbers since 1970-01-01 and timestamps as epoch
// milliseconds.
package persist

import (
	"encoding/json"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/baiguoname/qust-sub001/internal/version"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

type Format string

const (
	FormatBinary Format = "bin"
	FormatJSON   Format = "json"
)

var AllFormats = []any{FormatBinary, FormatJSON}

// Artifact is a value that can be persisted.
type Artifact interface {
	// Kind names the artifact type; Load refuses files of another kind.
	Kind() string
	AppendWire(b []byte) []byte
	ConsumeWire(b []byte) error
}

// Path returns the file an artifact named name is stored in.
func Path(dir, name string, f Format) string {
	return filepath.Join(dir, name+"."+string(f))
}

const (
	headerVersion protowire.Number = 1
	headerKind    protowire.Number = 2
	headerPayload protowire.Number = 3
)

type document struct {
	Version string          `json:"version"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

// Save writes a to dir/name in format f, replacing any previous file.
func Save(dir, name string, f Format, a Artifact) error {
	var (
		out []byte
		err error
	)

	switch f {
	case FormatBinary:
		out = appendString(nil, headerVersion, version.GetVersion())
		out = appendString(out, headerKind, a.Kind())
		out = protowire.AppendTag(out, headerPayload, protowire.BytesType)
		out = protowire.AppendBytes(out, a.AppendWire(nil))
	case FormatJSON:
		data, merr := json.Marshal(a)
		if merr != nil {
			return errors.Wrapf(errors.ErrCodePersistFailed, merr, "failed to encode %s", a.Kind())
		}

		out, err = json.MarshalIndent(document{Version: version.GetVersion(), Kind: a.Kind(), Data: data}, "", "  ")
		if err != nil {
			return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to encode %s", a.Kind())
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown persist format %q", f)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodePersistFailed, "failed to create artifact directory", err)
	}

	path := Path(dir, name, f)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to write %s", path)
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to replace %s", path)
	}

	return nil
}

// Load reads dir/name in format f into a. The file must hold an artifact of
// the same kind written by a compatible version.
func Load(dir, name string, f Format, a Artifact) error {
	path := Path(dir, name, f)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "no artifact at %s", path)
	}

	if err != nil {
		return errors.Wrapf(errors.ErrCodePersistFailed, err, "failed to read %s", path)
	}

	var (
		ver, kind string
		payload   []byte
		data      json.RawMessage
	)

	switch f {
	case FormatBinary:
		err = consumeFields(raw, func(num protowire.Number, _ protowire.Type, v []byte) error {
			switch num {
			case headerVersion:
				ver = string(v)
			case headerKind:
				kind = string(v)
			case headerPayload:
				payload = v
			}

			return nil
		})
	case FormatJSON:
		var doc document
		err = json.Unmarshal(raw, &doc)
		ver, kind, data = doc.Version, doc.Kind, doc.Data
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown persist format %q", f)
	}

	if err != nil {
		return errors.Wrapf(errors.ErrCodeMalformedInput, err, "corrupt artifact %s", path)
	}

	if kind != a.Kind() {
		return errors.Newf(errors.ErrCodeMalformedInput, "%s holds %q, not %q", path, kind, a.Kind())
	}

	if err := version.CheckArtifactCompatibility(version.GetVersion(), ver); err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "cannot load %s", path)
	}

	if f == FormatJSON {
		err = json.Unmarshal(data, a)
	} else {
		err = a.ConsumeWire(payload)
	}

	if err != nil {
		return errors.Wrapf(errors.ErrCodeMalformedInput, err, "corrupt %s payload in %s", kind, path)
	}

	return nil
}
