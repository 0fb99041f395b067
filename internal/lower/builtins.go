package lower

// builtinWidth returns the result width of builtin name and whether it
// is a known primitive (§6).
func builtinWidth(name string) (width int, ok bool) {
	switch name {
	case "sin", "cos", "tan", "asin", "acos", "atan", "abs", "floor", "ceil",
		"round", "sqrt", "exp", "log", "log2", "sign", "fract":
		return 1, true
	case "atan2", "pow", "mod", "min", "max", "step":
		return 1, true
	case "clamp", "lerp", "mix", "smoothstep":
		return 1, true
	case "select":
		return 1, true
	case "osc", "noise":
		return 1, true
	case "camera":
		return 3, true
	case "microphone":
		return 2, true
	case "texture", "load":
		return 3, true
	case "sample":
		return 2, true
	case "mouse":
		return 3, true
	case "text":
		return 1, true
	case "key":
		return 1, true
	case "cache":
		return 1, true
	default:
		return 0, false
	}
}

// builtinArity reports the expected argument count for builtins with a
// fixed arity (used for error messages; variadic builtins return -1).
func builtinArity(name string) int {
	switch name {
	case "sin", "cos", "tan", "asin", "acos", "atan", "abs", "floor", "ceil",
		"round", "sqrt", "exp", "log", "log2", "sign", "fract":
		return 1
	case "atan2", "pow", "mod", "min", "max", "step":
		return 2
	case "clamp", "lerp", "mix", "smoothstep":
		return 3
	case "osc":
		return 1
	case "microphone":
		return 1
	case "text":
		return 3
	case "key":
		return 1
	case "cache":
		return 4
	case "mouse":
		return 0
	default:
		return -1 // variadic: select, noise, camera, texture, load, sample
	}
}

// resourceBuiltins names builtins whose first argument is a resource
// path registered in the resource table (§4.4 "Resource builtins with
// string arguments register the string in the resources table").
var resourceBuiltins = map[string]bool{
	"texture": true, "load": true, "sample": true,
}

// textResourceBuiltins names builtins whose first argument is interned
// into the inline-text table instead of the path table.
var textResourceBuiltins = map[string]bool{
	"text": true,
}
