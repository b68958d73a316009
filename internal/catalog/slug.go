package catalog

import (
	"strings"

	"catalog-service/internal/models"

	"github.com/gosimple/slug"
)

// ProductSlug returns the route slug of a product: its name slugified,
// followed by its id.
func ProductSlug(name, id string) string {
	s := slug.Make(name)
	if s == "" {
		return id
	}
	return s + "-" + id
}

// ProductIDFromSlug returns the product id carried by a route slug
func ProductIDFromSlug(s string) string {
	if i := strings.LastIndex(s, "-"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// WithSlugs fills the route slug of related products that lack one
func WithSlugs(related []models.RelatedProduct) []models.RelatedProduct {
	for i := range related {
		if related[i].Slug == "" {
			related[i].Slug = ProductSlug(related[i].Name, related[i].ID)
		}
	}
	return related
}
