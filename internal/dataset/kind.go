package dataset

import (
	"fmt"
	"strings"
)

// Kind selects the extractor, schema and remote dataset of an export run.
type Kind string

const (
	KindCustomer    Kind = "customer"
	KindProduct     Kind = "product"
	KindInteraction Kind = "interaction"
)

// Kinds lists every dataset kind in export order.
func Kinds() []Kind {
	return []Kind{KindCustomer, KindProduct, KindInteraction}
}

// ParseKind accepts the singular or plural name of a dataset kind.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "customer", "customers", "user", "users":
		return KindCustomer, nil
	case "product", "products", "item", "items":
		return KindProduct, nil
	case "interaction", "interactions":
		return KindInteraction, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q", raw)
}

func (k Kind) String() string {
	return string(k)
}
