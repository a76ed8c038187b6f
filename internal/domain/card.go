package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProductType distinguishes single cards from sealed product aggregates.
type ProductType string

const (
	ProductTypeSingle ProductType = "Single"
	ProductTypeBox    ProductType = "Box"
)

// ParseProductType validates a product-type token, accepting any casing of
// the canonical values.
func ParseProductType(s string) (ProductType, error) {
	switch strings.ToLower(s) {
	case "single":
		return ProductTypeSingle, nil
	case "box":
		return ProductTypeBox, nil
	default:
		return "", fmt.Errorf("%w: unknown product type %q", ErrInvalidParameter, s)
	}
}

// Card is a tracked collectible card (or sealed product) whose market
// activity the engine computes metrics for.
type Card struct {
	ID          string
	Name        string
	SetName     string
	Number      string
	Rarity      string
	ProductType ProductType
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
