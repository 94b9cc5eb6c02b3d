package checkout

import (
	"github.com/MarcGrol/dobmilano/services/catalog"
)

type ItemKind = catalog.LineKind

const (
	ItemKindProduct = catalog.LineKindProduct
	ItemKindService = catalog.LineKindService
	ItemKindPackage = catalog.LineKindPackage
)

// ClassifyItemID tells the kind of a cart line from the marker in its id.
// "12:service:default" is a service, "12:package:five" a package, anything else a product.
func ClassifyItemID(id string) ItemKind {
	return catalog.ParseLineID(id).Kind
}

func IsServiceLike(id string) bool {
	kind := ClassifyItemID(id)
	return kind == ItemKindService || kind == ItemKindPackage
}
