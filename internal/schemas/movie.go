package schemas

import (
	_ "embed"
	"sync"
)

//go:embed movie_ld.schema.json
var movieLDSchema string

var movieLD = sync.OnceValues(func() (*Validator, error) {
	return NewValidator("movie_ld.schema.json", movieLDSchema)
})

// MovieLD returns the validator for schema.org Movie JSON-LD blocks.
func MovieLD() (*Validator, error) {
	return movieLD()
}
