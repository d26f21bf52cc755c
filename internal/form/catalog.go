package form

import (
	"github.com/cockroachdb/errors"
)

// Values maps field slugs to cleaned submitted values.
type Values map[string]any

// Catalog is the immutable, ordered set of fields of one form.
// It is built per request and safe for concurrent reads.
type Catalog struct {
	fields  []*Field
	bySlug  map[string]*Field
	byBlock map[string]*Field
}

// NewCatalog builds a catalog from the authored field list.
func NewCatalog(raw []RawField) (*Catalog, error) {
	fields := make([]*Field, 0, len(raw))
	for _, r := range raw {
		fields = append(fields, FieldFromRaw(r))
	}
	return CatalogOf(fields...)
}

// CatalogOf builds a catalog from already-built descriptors.
func CatalogOf(fields ...*Field) (*Catalog, error) {
	c := &Catalog{
		fields:  make([]*Field, 0, len(fields)),
		bySlug:  make(map[string]*Field, len(fields)),
		byBlock: make(map[string]*Field, len(fields)),
	}
	for i, f := range fields {
		if f.Slug == "" {
			return nil, errors.Newf("fields[%d]: empty slug", i)
		}
		if !f.Type.Valid() {
			return nil, errors.Newf("field %s: unknown type %q", f.Slug, f.Type)
		}
		if _, dup := c.bySlug[f.Slug]; dup {
			return nil, errors.Newf("duplicate field slug %q", f.Slug)
		}
		if f.BlockID != "" {
			if _, dup := c.byBlock[f.BlockID]; dup {
				return nil, errors.Newf("duplicate field block id %q", f.BlockID)
			}
			c.byBlock[f.BlockID] = f
		}
		c.bySlug[f.Slug] = f
		c.fields = append(c.fields, f)
	}
	return c, nil
}

// Fields returns the fields in authored order.
func (c *Catalog) Fields() []*Field { return c.fields }

// Len returns the number of fields.
func (c *Catalog) Len() int { return len(c.fields) }

// BySlug looks a field up by slug.
func (c *Catalog) BySlug(slug string) (*Field, bool) {
	f, ok := c.bySlug[slug]
	return f, ok
}

// ByBlockID looks a field up by its authoring block id.
func (c *Catalog) ByBlockID(id string) (*Field, bool) {
	f, ok := c.byBlock[id]
	return f, ok
}
