package order

import (
	"github.com/go-faster/errors"
	"go.jetify.com/typeid/v2"
)

// RefPrefix prefixes every order reference.
const RefPrefix = "ord"

// RefGenerator produces order references.
type RefGenerator func() (string, error)

// NewRef returns a TypeID reference such as ord_01h455vb4pex5vsknk084sn02q.
// The suffix is a UUIDv7, so references sort by creation time.
func NewRef() (string, error) {
	id, err := typeid.Generate(RefPrefix)
	if err != nil {
		return "", errors.Wrap(err, "generate order ref")
	}
	return id.String(), nil
}

// ValidRef reports whether s looks like an order reference.
func ValidRef(s string) bool {
	id, err := typeid.Parse(s)
	return err == nil && id.Prefix() == RefPrefix
}
