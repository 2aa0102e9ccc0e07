// Package product holds the retail product document and its embedding text.
package product

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Variant is a purchasable variation of a product.
type Variant struct {
	SKU             string  `json:"sku"`
	Size            *string `json:"size,omitempty"`
	Color           *string `json:"color,omitempty"`
	PriceAdjustment float64 `json:"priceAdjustment"`
	Stock           int     `json:"stock"`
}

// Product is a catalogue entry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Tags        []string  `json:"tags"`
	InStock     *bool     `json:"inStock,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Variants    []Variant `json:"variants"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Normalize fills the fields a producer may omit: a random id, the current
// time as createdAt, and inStock=true.
func (p *Product) Normalize(now time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now.UTC()
	}
	if p.InStock == nil {
		in := true
		p.InStock = &in
	}
}

// Source returns the stored form.
func (p *Product) Source() map[string]any {
	tags := make([]any, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t)
	}
	variants := make([]any, 0, len(p.Variants))
	for _, v := range p.Variants {
		m := map[string]any{
			"sku":             v.SKU,
			"priceAdjustment": v.PriceAdjustment,
			"stock":           v.Stock,
		}
		if v.Size != nil {
			m["size"] = *v.Size
		}
		if v.Color != nil {
			m["color"] = *v.Color
		}
		variants = append(variants, m)
	}
	src := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"price":       p.Price,
		"tags":        tags,
		"inStock":     p.InStock == nil || *p.InStock,
		"createdAt":   p.CreatedAt.UTC(),
		"variants":    variants,
	}
	if len(p.Embedding) > 0 {
		src["embedding"] = slices.Clone(p.Embedding)
	}
	return src
}

// FromSource decodes a stored product.
func FromSource(src map[string]any) (Product, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return Product{}, fmt.Errorf("decode product: %w", err)
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Product{}, fmt.Errorf("decode product: %w", err)
	}
	return p, nil
}

// EmbeddingText is the text embedded for semantic search.
func (p *Product) EmbeddingText() string {
	var colors, sizes []string
	for _, v := range p.Variants {
		if v.Color != nil && *v.Color != "" && !slices.Contains(colors, *v.Color) {
			colors = append(colors, *v.Color)
		}
		if v.Size != nil && *v.Size != "" && !slices.Contains(sizes, *v.Size) {
			sizes = append(sizes, *v.Size)
		}
	}
	return fmt.Sprintf("%s. Category: %s. Tags: %s. Colors: %s. Sizes: %s",
		p.Name, p.Category,
		strings.Join(p.Tags, ", "),
		strings.Join(colors, ", "),
		strings.Join(sizes, ", "),
	)
}
