package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyItemID(t *testing.T) {
	testCases := []struct {
		id          string
		kind        ItemKind
		serviceLike bool
	}{
		{id: "10", kind: ItemKindProduct},
		{id: "siero-viso", kind: ItemKindProduct},
		{id: "1:service:default", kind: ItemKindService, serviceLike: true},
		{id: "1:package:five", kind: ItemKindPackage, serviceLike: true},
		{id: "x:service:y:package:z", kind: ItemKindPackage, serviceLike: true},
	}
	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			assert.Equal(t, tc.kind, ClassifyItemID(tc.id))
			assert.Equal(t, tc.serviceLike, IsServiceLike(tc.id))
		})
	}
}
