package patch

import (
	"catalog-service/internal/models"

	"github.com/shopspring/decimal"
)

// ProductFields mirrors the products table: name is VARCHAR(255) and price
// is NUMERIC(12, 2).
var ProductFields = NewSchema("product",
	Field{Name: "name", Kind: String, Required: true, MaxLen: 255},
	Field{Name: "description", Kind: String},
	Field{Name: "price", Kind: Decimal, Required: true, NonNegative: true, Precision: 12, Scale: 2},
	Field{Name: "stock", Kind: Int, NonNegative: true},
	Field{Name: "image_url", Kind: String},
	Field{Name: "category_id", Kind: Ref},
)

// ApplyProduct returns existing with the fields present in raw replaced.
// The caller is responsible for having loaded existing; a missing product is
// reported before the engine runs.
func ApplyProduct(existing models.Product, raw map[string]any) (models.Product, Changes, error) {
	changes, err := ProductFields.Normalize(raw)
	if err != nil {
		return existing, nil, err
	}
	return applyProductChanges(existing, changes), changes, nil
}

// NewProduct builds a product from a create request. name and price are
// mandatory; everything else takes its zero default and category_id stays
// unset.
func NewProduct(raw map[string]any) (models.Product, error) {
	if len(raw) == 0 {
		return models.Product{}, &ValidationError{Reason: "name and price are required fields"}
	}

	changes, err := ProductFields.Normalize(raw)
	if err != nil {
		return models.Product{}, err
	}
	for _, required := range []string{"name", "price"} {
		if _, ok := changes.Get(required); !ok {
			return models.Product{}, &ValidationError{Field: required, Reason: "is required"}
		}
	}

	return applyProductChanges(models.Product{}, changes), nil
}

func applyProductChanges(p models.Product, changes Changes) models.Product {
	for _, ch := range changes {
		switch ch.Field {
		case "name":
			p.Name = ch.Value.(string)
		case "description":
			p.Description = ch.Value.(string)
		case "price":
			p.Price = ch.Value.(decimal.Decimal)
		case "stock":
			p.Stock = ch.Value.(int)
		case "image_url":
			p.ImageURL = ch.Value.(string)
		case "category_id":
			p.CategoryID = ch.Value.(*int)
		}
	}
	return p
}
