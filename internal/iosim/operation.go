package iosim

import "fmt"

// operators is the fixed enumeration of binary operators an "operation"
// simulation may reduce its operands with.
var operators = map[string]func(a, b uint64) uint64{
	"add": func(a, b uint64) uint64 { return a + b },
	"sub": func(a, b uint64) uint64 { return a - b },
	"mul": func(a, b uint64) uint64 { return a * b },
	"floordiv": func(a, b uint64) uint64 {
		if b == 0 {
			return 0
		}
		return a / b
	},
	"mod": func(a, b uint64) uint64 {
		if b == 0 {
			return 0
		}
		return a % b
	},
	"and_":   func(a, b uint64) uint64 { return a & b },
	"or_":    func(a, b uint64) uint64 { return a | b },
	"xor":    func(a, b uint64) uint64 { return a ^ b },
	"lshift": func(a, b uint64) uint64 { return a << (b & 63) },
	"rshift": func(a, b uint64) uint64 { return a >> (b & 63) },
}

func lookupOperator(name string) (func(a, b uint64) uint64, error) {
	fn, ok := operators[name]
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", name)
	}
	return fn, nil
}
