package provision

import (
	"fmt"

	"github.com/kailas-cloud/dossier/internal/store"
)

// ProductSchema is the product mapping with an embedding of dims dimensions.
func ProductSchema(dims int) (*store.Schema, error) {
	s, err := store.NewSchema().
		Keyword("id", "category", "tags").
		Text("name").
		Text("description").
		Double("price").
		Boolean("inStock").
		Date("createdAt").
		Nested("variants", func(b *store.SchemaBuilder) {
			b.Keyword("sku", "size").
				Text("color").
				Double("priceAdjustment").
				Integer("stock")
		}).
		Vector("embedding", dims, store.SimilarityCosine).
		Build()
	if err != nil {
		return nil, fmt.Errorf("product schema: %w", err)
	}
	return s, nil
}

// ApplicationSchema is the mapping of current-shape applications.
func ApplicationSchema() *store.Schema {
	return store.NewSchema().
		Keyword("id", "product", "transaction", "branch").
		KeywordLowercase("channel", "status", "user").
		Date("createdAt").
		Date("updatedAt").
		Integer("schemaVersion").
		Nested("clients", func(b *store.SchemaBuilder) {
			clientFields(b, "")
			b.Keyword("role", "parentClientId")
		}).
		MustBuild()
}

// LegacyApplicationSchema is the mapping of legacy applications. Main
// applicant members are plain objects; co-applicants are matched per element.
func LegacyApplicationSchema() *store.Schema {
	b := store.NewSchema().
		Keyword("id", "product", "transaction", "channel", "branch", "status", "user").
		Date("createdAt").
		Date("updatedAt")
	clientFields(b, "mainApplicant.client.")
	clientFields(b, "mainApplicant.spouse.")
	return b.Nested("coApplicants", func(b *store.SchemaBuilder) {
		clientFields(b, "client.")
		clientFields(b, "spouse.")
	}).MustBuild()
}

func clientFields(b *store.SchemaBuilder, prefix string) {
	b.KeywordLowercase(prefix+"email", prefix+"firstName", prefix+"lastName").
		Keyword(prefix+"nationalId", prefix+"clientId")
}
