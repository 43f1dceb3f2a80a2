package types

// BuiltinScalars are the built-in scalar type names of spec.md §6.3.
// module.NewUniverse builds one TypeDecl per name here.
var BuiltinScalars = []string{
	"void", "bool", "char",
	"int", "int8", "int16", "int32", "int64",
	"uint", "uint8", "uint16", "uint32", "uint64",
	"float", "float32", "float64", "float80",
	"string",
}

func IsBuiltinScalarName(name string) bool {
	for _, n := range BuiltinScalars {
		if n == name {
			return true
		}
	}
	return false
}

// IntegerRange reports the inclusive [lo, hi] range representable by the
// named integer type, used by IntLit checking (spec.md §4.5.1, §8
// property 5) and by the integer-literal autocast rule (spec.md §4.5.2
// rule 4).
func IntegerRange(name string) (lo, hi int64, ok bool) {
	switch name {
	case "int8":
		return -1 << 7, 1<<7 - 1, true
	case "int16":
		return -1 << 15, 1<<15 - 1, true
	case "int32", "int":
		return -1 << 31, 1<<31 - 1, true
	case "int64":
		return -1 << 63, 1<<63 - 1, true
	case "uint8":
		return 0, 1<<8 - 1, true
	case "uint16":
		return 0, 1<<16 - 1, true
	case "uint32", "uint":
		return 0, 1<<32 - 1, true
	case "uint64":
		// the true maximum would overflow int64, so hi is capped at the
		// int64 maximum and larger values are reported out of range.
		return 0, 1<<63 - 1, true
	default:
		return 0, 0, false
	}
}
