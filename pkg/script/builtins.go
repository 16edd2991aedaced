package script

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chazu/roomcraft/pkg/bus"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites console source before zygomys sees it:
//
//  1. :keyword becomes the string "__kw_keyword", so keyword arguments need
//     no global symbols.
//  2. kebab-case identifiers become snake_case, since zygomys reads a
//     hyphen as subtraction: insert-model -> insert_model.
//  3. ; line comments become // comments.
//
// String literals are left alone.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	x, y, z float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.x, v.y, v.z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpCommand is what every command builtin returns.
type sexpCommand struct {
	cmd bus.Command
}

func (c *sexpCommand) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", c.cmd.Name())
}
func (c *sexpCommand) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument handling
// ---------------------------------------------------------------------------

const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i++
			} else {
				result.kw[name] = zygo.SexpNull
			}
			continue
		}
		result.positional = append(result.positional, args[i])
	}
	return result
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toJSON maps a script value onto the JSON value a command payload holds.
func toJSON(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *sexpVec3:
		return []float64{v.x, v.y, v.z}, nil
	case *zygo.SexpStr:
		return v.S, nil
	case *zygo.SexpInt, *zygo.SexpFloat:
		return toFloat64(s)
	}
	if s == zygo.SexpNull {
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

// primaryField names the payload field a leading positional argument
// fills, e.g. (insert-model "/models/chair.glb").
var primaryField = map[string]string{
	bus.NameInsertModel:  "path",
	bus.NameSelectNode:   "name",
	bus.NameSetTransform: "name",
	bus.NameSaveRoom:     "key",
	bus.NameLoadRoom:     "key",
}

var commandNames = []string{
	bus.NameInsertModel,
	bus.NameExportScene,
	bus.NameImportScene,
	bus.NameDeleteSelected,
	bus.NameResizeRoom,
	bus.NameSelectNode,
	bus.NameSetTransform,
	bus.NameSaveRoom,
	bus.NameLoadRoom,
}

// payload builds the JSON payload for a command call. import-scene takes
// the snapshot document as a single string.
func payload(name string, pa kwArgs) ([]byte, error) {
	if name == bus.NameImportScene {
		if len(pa.positional) != 1 {
			return nil, fmt.Errorf("expects one snapshot string")
		}
		doc, err := toString(pa.positional[0])
		if err != nil {
			return nil, err
		}
		return []byte(doc), nil
	}

	fields := make(map[string]any, len(pa.kw)+1)
	switch len(pa.positional) {
	case 0:
	case 1:
		field, ok := primaryField[name]
		if !ok {
			return nil, fmt.Errorf("takes no positional arguments")
		}
		v, err := toString(pa.positional[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		fields[field] = v
	default:
		return nil, fmt.Errorf("too many positional arguments")
	}
	for k, s := range pa.kw {
		v, err := toJSON(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		fields[k] = v
	}
	return json.Marshal(fields)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs (vec3 x y z) and one builtin per bus command.
// Each command call is validated with bus.Decode and appended to issued.
func registerBuiltins(env *zygo.Zlisp, issued *[]bus.Command) {
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{x: xyz[0], y: xyz[1], z: xyz[2]}, nil
	})

	for _, cmdName := range commandNames {
		env.AddFunction(strings.ReplaceAll(cmdName, "-", "_"), func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			data, err := payload(cmdName, parseArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", cmdName, err)
			}
			cmd, err := bus.Decode(cmdName, data)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", cmdName, err)
			}
			*issued = append(*issued, cmd)
			return &sexpCommand{cmd: cmd}, nil
		})
	}
}
