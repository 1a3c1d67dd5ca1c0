// Package catalog describes the orderable relations of the catalog and
// resolves caller-supplied global IDs to items of one list.
//
// Each relation kind is a closed, statically described variant. Storage code
// reads table and column names from the Relation descriptor only; nothing is
// looked up by name at runtime.
package catalog

import (
	"fmt"
	"strings"
)

// Kind selects one orderable relation.
type Kind int

const (
	KindUnknown Kind = iota

	// AttributeValues orders the values of one attribute.
	AttributeValues

	// PageTypeAttributes orders the attributes assigned to one page type.
	PageTypeAttributes

	// ProductTypeAttributes orders the attributes assigned to one product type.
	ProductTypeAttributes

	// CollectionProducts orders the products of one collection.
	CollectionProducts
)

var kindNames = map[Kind]string{
	AttributeValues:       "attribute_values",
	PageTypeAttributes:    "page_type_attributes",
	ProductTypeAttributes: "product_type_attributes",
	CollectionProducts:    "collection_products",
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{AttributeValues, PageTypeAttributes, ProductTypeAttributes, CollectionProducts}
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind converts a wire name (e.g. "attribute_values") to a Kind.
// Dashes are accepted in place of underscores.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds() {
		if kindNames[k] == normalized {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown list kind %q: must be one of %v", s, Kinds())
}

// Relation is the storage descriptor of a kind.
type Relation struct {
	Kind Kind

	// Table holds one row per list member, with the sort key column.
	Table string

	// ParentTable holds the list owners; ParentColumn references it from Table.
	ParentTable  string
	ParentColumn string

	// ItemColumn holds the id callers use to address a member. ItemTable is
	// the table that id references, or empty when the row itself is the item.
	ItemColumn string
	ItemTable  string

	// ParentType and ItemType are the global ID type names.
	ParentType string
	ItemType   string
}

// SortColumn is the sort key column shared by every relation table.
const SortColumn = "sort_order"

// Relation returns the storage descriptor for k.
// Panics on KindUnknown, which ParseKind never returns without an error.
func (k Kind) Relation() Relation {
	switch k {
	case AttributeValues:
		return Relation{
			Kind:         k,
			Table:        "attribute_values",
			ParentTable:  "attributes",
			ParentColumn: "attribute_id",
			ItemColumn:   "id",
			ParentType:   "Attribute",
			ItemType:     "AttributeValue",
		}
	case PageTypeAttributes:
		return Relation{
			Kind:         k,
			Table:        "page_type_attributes",
			ParentTable:  "page_types",
			ParentColumn: "page_type_id",
			ItemColumn:   "attribute_id",
			ItemTable:    "attributes",
			ParentType:   "PageType",
			ItemType:     "Attribute",
		}
	case ProductTypeAttributes:
		return Relation{
			Kind:         k,
			Table:        "product_type_attributes",
			ParentTable:  "product_types",
			ParentColumn: "product_type_id",
			ItemColumn:   "attribute_id",
			ItemTable:    "attributes",
			ParentType:   "ProductType",
			ItemType:     "Attribute",
		}
	case CollectionProducts:
		return Relation{
			Kind:         k,
			Table:        "collection_products",
			ParentTable:  "collections",
			ParentColumn: "collection_id",
			ItemColumn:   "product_id",
			ItemTable:    "products",
			ParentType:   "Collection",
			ItemType:     "Product",
		}
	default:
		panic(fmt.Sprintf("catalog: no relation for kind %d", int(k)))
	}
}

// LockKey returns the key used to serialize reorders of one list.
func (r Relation) LockKey(parentID int64) string {
	return fmt.Sprintf("%s:%d", r.Kind, parentID)
}
