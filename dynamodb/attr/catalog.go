package attr

import "fmt"

// Catalog is the immutable set of attributes owned by one entity.
type Catalog struct {
	attrs map[string]Attribute
	order []string
}

// NewCatalog validates attrs and returns a catalog preserving their order.
func NewCatalog(attrs ...Attribute) (*Catalog, error) {
	c := &Catalog{
		attrs: make(map[string]Attribute, len(attrs)),
		order: make([]string, 0, len(attrs)),
	}
	for _, a := range attrs {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.attrs[a.Name]; dup {
			return nil, fmt.Errorf("%w: attribute %q defined more than once", ErrInvalidAttribute, a.Name)
		}
		if a.Padding != nil {
			p := *a.Padding
			a.Padding = &p
		}
		a.Enum = append([]string(nil), a.Enum...)
		c.attrs[a.Name] = a
		c.order = append(c.order, a.Name)
	}
	return c, nil
}

// Get returns the attribute with the given name.
func (c *Catalog) Get(name string) (Attribute, bool) {
	a, ok := c.attrs[name]
	return a, ok
}

// Has reports whether the catalog defines name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.attrs[name]
	return ok
}

// Names returns attribute names in definition order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of attributes.
func (c *Catalog) Len() int {
	return len(c.order)
}
