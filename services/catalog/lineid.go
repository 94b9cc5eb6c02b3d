package catalog

import "strings"

const (
	serviceMarker  = ":service:"
	packageMarker  = ":package:"
	defaultVariant = "default"
)

// ParseLineID splits a wire id like "12:package:five-sessions" into its parts.
// Any id holding a marker is service-like, wherever the marker appears.
func ParseLineID(id string) LineRef {
	if idx := strings.Index(id, packageMarker); idx >= 0 {
		return LineRef{Kind: LineKindPackage, DocID: id[:idx], Variant: id[idx+len(packageMarker):]}
	}
	if idx := strings.Index(id, serviceMarker); idx >= 0 {
		return LineRef{Kind: LineKindService, DocID: id[:idx], Variant: id[idx+len(serviceMarker):]}
	}
	return LineRef{Kind: LineKindProduct, DocID: id}
}

func (r LineRef) String() string {
	switch r.Kind {
	case LineKindPackage:
		return r.DocID + packageMarker + r.Variant
	case LineKindService:
		return r.DocID + serviceMarker + r.Variant
	default:
		return r.DocID
	}
}

func (r LineRef) IsServiceLike() bool {
	return r.Kind == LineKindService || r.Kind == LineKindPackage
}
