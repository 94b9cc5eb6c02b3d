package mystore

import (
	"fmt"
	"strings"
)

// kindOf names the entity kind after the Go type, without package prefix.
func kindOf[T any]() string {
	val := new(T)
	kind := fmt.Sprintf("%T", *val)
	if idx := strings.LastIndex(kind, "."); idx >= 0 {
		kind = kind[idx+1:]
	}
	return kind
}
