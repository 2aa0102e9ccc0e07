package store

import (
	"fmt"
	"strings"
)

// FieldType enumerates supported partition field types.
type FieldType int

const (
	// FieldKeyword is an exact-match string.
	FieldKeyword FieldType = iota
	// FieldKeywordLowercase is a string matched after case folding.
	FieldKeywordLowercase
	// FieldText is an analyzed full-text string.
	FieldText
	// FieldDate is a timestamp.
	FieldDate
	// FieldDouble is a floating point number.
	FieldDouble
	// FieldInteger is an integer.
	FieldInteger
	// FieldBoolean is a boolean.
	FieldBoolean
	// FieldNested is an array of objects matched per element.
	FieldNested
	// FieldVector is a dense vector.
	FieldVector
)

var fieldTypeNames = map[FieldType]string{
	FieldKeyword:          "keyword",
	FieldKeywordLowercase: "keyword_lowercase",
	FieldText:             "text",
	FieldDate:             "date",
	FieldDouble:           "double",
	FieldInteger:          "integer",
	FieldBoolean:          "boolean",
	FieldNested:           "nested",
	FieldVector:           "dense_vector",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Similarity is the vector similarity function.
type Similarity string

const (
	// SimilarityCosine is cosine similarity.
	SimilarityCosine Similarity = "cosine"
	// SimilarityDotProduct is the inner product.
	SimilarityDotProduct Similarity = "dotProduct"
	// SimilarityEuclidean is Euclidean distance.
	SimilarityEuclidean Similarity = "euclidean"
)

// Field describes a single field of a partition schema. Object members
// are declared with dotted names such as "mainApplicant.client.email".
type Field struct {
	Name string
	Type FieldType

	// Nested sub-fields, relative to the element.
	Fields []Field

	// Vector options
	Dims       int
	Similarity Similarity
}

// Schema is a partition mapping.
type Schema struct {
	Fields []Field
}

// Validate checks that the schema is well-formed.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrInvalidSchema)
	}
	return validateFields(s.Fields, "")
}

func validateFields(fields []Field, prefix string) error {
	seen := make(map[string]bool, len(fields))
	for i := range fields {
		f := &fields[i]
		if f.Name == "" {
			return fmt.Errorf("%w: field name is required at %s[%d]", ErrInvalidSchema, prefix, i)
		}
		path := prefix + f.Name
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field name: %s", ErrInvalidSchema, path)
		}
		seen[f.Name] = true

		switch f.Type {
		case FieldVector:
			if f.Dims <= 0 {
				return fmt.Errorf("%w: vector field %s requires positive dims", ErrInvalidSchema, path)
			}
		case FieldNested:
			if len(f.Fields) == 0 {
				return fmt.Errorf("%w: nested field %s has no sub-fields", ErrInvalidSchema, path)
			}
			if err := validateFields(f.Fields, path+"."); err != nil {
				return err
			}
		}
	}
	return nil
}

// Vectors returns the top-level vector fields.
func (s *Schema) Vectors() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Type == FieldVector {
			out = append(out, f)
		}
	}
	return out
}

// String returns a compact debug representation.
func (s *Schema) String() string {
	parts := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		parts = append(parts, fieldString(f))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func fieldString(f Field) string {
	switch f.Type {
	case FieldNested:
		sub := make([]string, 0, len(f.Fields))
		for _, c := range f.Fields {
			sub = append(sub, fieldString(c))
		}
		return f.Name + ":nested{" + strings.Join(sub, " ") + "}"
	case FieldVector:
		return fmt.Sprintf("%s:dense_vector(%d,%s)", f.Name, f.Dims, f.Similarity)
	default:
		return f.Name + ":" + f.Type.String()
	}
}

// SchemaBuilder is a fluent builder for partition schemas.
type SchemaBuilder struct {
	fields []Field
}

// NewSchema starts building a partition schema.
func NewSchema() *SchemaBuilder {
	return &SchemaBuilder{}
}

func (b *SchemaBuilder) add(name string, t FieldType) *SchemaBuilder {
	b.fields = append(b.fields, Field{Name: name, Type: t})
	return b
}

// Keyword adds exact-match string fields.
func (b *SchemaBuilder) Keyword(names ...string) *SchemaBuilder {
	for _, n := range names {
		b.add(n, FieldKeyword)
	}
	return b
}

// KeywordLowercase adds case-insensitive string fields.
func (b *SchemaBuilder) KeywordLowercase(names ...string) *SchemaBuilder {
	for _, n := range names {
		b.add(n, FieldKeywordLowercase)
	}
	return b
}

// Text adds a full-text field.
func (b *SchemaBuilder) Text(name string) *SchemaBuilder { return b.add(name, FieldText) }

// Date adds a timestamp field.
func (b *SchemaBuilder) Date(name string) *SchemaBuilder { return b.add(name, FieldDate) }

// Double adds a floating point field.
func (b *SchemaBuilder) Double(name string) *SchemaBuilder { return b.add(name, FieldDouble) }

// Integer adds an integer field.
func (b *SchemaBuilder) Integer(name string) *SchemaBuilder { return b.add(name, FieldInteger) }

// Boolean adds a boolean field.
func (b *SchemaBuilder) Boolean(name string) *SchemaBuilder { return b.add(name, FieldBoolean) }

// Nested adds an array-of-objects field whose sub-fields are built by fn.
func (b *SchemaBuilder) Nested(name string, fn func(*SchemaBuilder)) *SchemaBuilder {
	sub := NewSchema()
	fn(sub)
	b.fields = append(b.fields, Field{Name: name, Type: FieldNested, Fields: sub.fields})
	return b
}

// Vector adds a dense vector field.
func (b *SchemaBuilder) Vector(name string, dims int, sim Similarity) *SchemaBuilder {
	b.fields = append(b.fields, Field{Name: name, Type: FieldVector, Dims: dims, Similarity: sim})
	return b
}

// Build validates and returns the schema.
func (b *SchemaBuilder) Build() (*Schema, error) {
	s := &Schema{Fields: b.fields}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustBuild calls Build and panics on error.
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
