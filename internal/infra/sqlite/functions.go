package sqlite

import (
	"database/sql/driver"
	"fmt"
	"sync"

	msqlite "modernc.org/sqlite"

	"github.com/matiasleandrokruk/ragline/pkg/vecmath"
)

// CosineFunc is the SQL name of the cosine similarity function.
const CosineFunc = "vec_cosine"

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterFunctions registers vec_cosine with the driver. Only connections
// opened after the first call see it; NewDB calls it before opening.
func RegisterFunctions() error {
	registerOnce.Do(func() {
		registerErr = msqlite.RegisterDeterministicScalarFunction(CosineFunc, 2, vecCosine)
	})
	return registerErr
}

// vecCosine(a BLOB, b BLOB) → REAL in [-1, 1], or NULL when either side is NULL.
func vecCosine(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected 2 arguments, got %d", CosineFunc, len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	return vecmath.Cosine(a, b)
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vecmath.Decode(v)
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T; want BLOB", CosineFunc, arg)
	}
}
