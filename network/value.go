package network

import "fmt"

// Value is a parameter value. Decoded networks only produce the concrete
// types declared in this file plus bool, int, float32 and string.
type Value = any

// AssetPath is a file reference. Textures may carry a "<UDIM>" token.
type AssetPath string

// Vec2f is a 2-component float vector.
type Vec2f [2]float32

// Vec3f is a 3-component float vector (colors, normals).
type Vec3f [3]float32

// Vec4f is a 4-component float vector.
type Vec4f [4]float32

// Int reads an integer parameter, accepting the numeric forms produced by
// decoders.
func Int(v Value) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint32:
		return int(t), true
	case float32:
		return int(t), float32(int(t)) == t
	case float64:
		return int(t), float64(int(t)) == t
	}
	return 0, false
}

// Float reads a scalar float parameter.
func Float(v Value) (float32, bool) {
	switch t := v.(type) {
	case float32:
		return t, true
	case float64:
		return float32(t), true
	case int:
		return float32(t), true
	}
	return 0, false
}

// String reads a string or asset parameter.
func String(v Value) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case AssetPath:
		return string(t), true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

// Bool reads a boolean parameter. Integers are truthy when non-zero.
func Bool(v Value) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case int:
		return t != 0, true
	}
	return false, false
}
