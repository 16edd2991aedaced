package bus

import (
	"bytes"
	"encoding/json"

	"github.com/chazu/roomcraft/pkg/scene"
	"github.com/chazu/roomcraft/pkg/snapshot"
)

// Decode validates a named payload from the UI and returns the command.
// Any missing or malformed required field is a *snapshot.FormatError.
func Decode(name string, payload []byte) (Command, error) {
	fields, err := object(name, payload)
	if err != nil {
		return nil, err
	}
	switch name {
	case NameInsertModel:
		var path string
		if err := required(name, fields, "path", &path); err != nil {
			return nil, err
		}
		if path == "" {
			return nil, formatErr(name, "path", "must not be empty")
		}
		return InsertModel{Path: path}, nil

	case NameExportScene:
		return ExportScene{}, nil

	case NameImportScene:
		raw, ok := fields["snapshot"]
		if !ok {
			// The bare snapshot object is accepted as well.
			if isNull(fields["walls"]) && isNull(fields["furniture"]) {
				return nil, formatErr(name, "snapshot", "required")
			}
			raw = payload
		} else if isNull(raw) {
			return nil, formatErr(name, "snapshot", "required")
		}
		s, err := snapshot.Decode(raw)
		if err != nil {
			return nil, formatErr(name, "snapshot", err.Error())
		}
		return ImportScene{Snapshot: s}, nil

	case NameDeleteSelected:
		return DeleteSelected{}, nil

	case NameResizeRoom:
		var r scene.Room
		for _, f := range []struct {
			key string
			dst *float64
		}{{"width", &r.Width}, {"depth", &r.Depth}, {"height", &r.Height}} {
			if err := required(name, fields, f.key, f.dst); err != nil {
				return nil, err
			}
			if *f.dst <= 0 {
				return nil, formatErr(name, f.key, "must be positive")
			}
		}
		if err := optional(name, fields, "thickness", &r.Thickness); err != nil {
			return nil, err
		}
		if r.Thickness < 0 {
			return nil, formatErr(name, "thickness", "must not be negative")
		}
		return ResizeRoom{Room: r}, nil

	case NameSelectNode:
		var n string
		if err := optional(name, fields, "name", &n); err != nil {
			return nil, err
		}
		return SelectNode{Target: n}, nil

	case NameSetTransform:
		var c SetTransform
		if err := required(name, fields, "name", &c.Target); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			key string
			dst **scene.Vec3
		}{{"pos", &c.Position}, {"rot", &c.Rotation}, {"scale", &c.Scale}} {
			if err := optional(name, fields, f.key, f.dst); err != nil {
				return nil, err
			}
		}
		if c.Position == nil && c.Rotation == nil && c.Scale == nil {
			return nil, formatErr(name, "pos", "one of pos, rot or scale is required")
		}
		return c, nil

	case NameSaveRoom:
		var key string
		if err := optional(name, fields, "key", &key); err != nil {
			return nil, err
		}
		return SaveRoom{Key: key}, nil

	case NameLoadRoom:
		var key string
		if err := optional(name, fields, "key", &key); err != nil {
			return nil, err
		}
		return LoadRoom{Key: key}, nil
	}
	return nil, &snapshot.FormatError{Section: name, Index: -1, Reason: "unknown command"}
}

// object splits a payload into its top-level fields. An empty or null
// payload is an empty object.
func object(name string, payload []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &snapshot.FormatError{Section: name, Index: -1, Reason: "payload must be a JSON object"}
	}
	return fields, nil
}

// isNull reports whether raw is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func required(name string, fields map[string]json.RawMessage, key string, dst any) error {
	raw := fields[key]
	if isNull(raw) {
		return formatErr(name, key, "required")
	}
	return decodeField(name, key, raw, dst)
}

func optional(name string, fields map[string]json.RawMessage, key string, dst any) error {
	raw := fields[key]
	if isNull(raw) {
		return nil
	}
	return decodeField(name, key, raw, dst)
}

func decodeField(name, key string, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return formatErr(name, key, err.Error())
	}
	return nil
}

func formatErr(name, field, reason string) error {
	return &snapshot.FormatError{Section: name, Index: -1, Field: field, Reason: reason}
}
