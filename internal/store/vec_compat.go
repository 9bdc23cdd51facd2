package store

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"

	sqlite "modernc.org/sqlite"
)

func init() {
	// Register pure-Go distance functions so the same SQL (`ORDER BY
	// vec_distance_l2(embedding, ?)`) runs whether or not the binary was
	// built with the real cgo sqlite-vec extension. These are full
	// per-row scalar evaluations, not an ANN index: a query using them
	// is a linear scan with SQL-level row scoring, same complexity
	// class as the Go-level fallback in content_store.go.
	_ = sqlite.RegisterDeterministicScalarFunction("vec_distance_l2", 2, vecDistanceL2)
	_ = sqlite.RegisterDeterministicScalarFunction("vec_distance_cosine", 2, vecDistanceCosine)
}

func vecDistanceL2(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := decodePair(args)
	if err != nil {
		return nil, err
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

func vecDistanceCosine(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := decodePair(args)
	if err != nil {
		return nil, err
	}
	if len(a) == 0 {
		return float64(1), nil
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return float64(1), nil
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - cos, nil
}

func decodePair(args []driver.Value) ([]float32, []float32, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("vec distance: expects 2 arguments, got %d", len(args))
	}
	a, err := decodeFloat32(args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := decodeFloat32(args[1])
	if err != nil {
		return nil, nil, err
	}
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf("vec distance: dimension mismatch %d vs %d", len(a), len(b))
	}
	return a, b, nil
}

// decodeFloat32 converts supported driver.Value types into a float32 slice.
func decodeFloat32(v driver.Value) ([]float32, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case []byte:
		if len(x)%4 != 0 {
			return nil, fmt.Errorf("vec distance: blob length %d not a multiple of 4", len(x))
		}
		out := make([]float32, len(x)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(x[i*4:]))
		}
		return out, nil
	case string:
		return decodeFloat32([]byte(x))
	case []float32:
		return x, nil
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("vec distance: unsupported type %T", v)
	}
}
