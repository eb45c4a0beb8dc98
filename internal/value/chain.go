package value

// Chain composes transformers. ToForm applies left-to-right and ToStorage
// applies right-to-left, so a chain round-trips through its members in
// mirror order. ToDisplay delegates to the last transformer only: the one
// closest to the raw storage shape owns display formatting.
type Chain struct {
	transformers []Transformer
}

// NewChain creates a Chain over the given transformers. An empty chain acts
// as the identity.
func NewChain(transformers ...Transformer) Chain {
	return Chain{transformers: transformers}
}

// ToForm converts a storage-shaped value to its form shape.
func (c Chain) ToForm(v Value) Value {
	for _, t := range c.transformers {
		v = t.ToForm(v)
	}
	return v
}

// ToStorage converts a form-shaped value back to its storage shape.
func (c Chain) ToStorage(v Value) Value {
	for i := len(c.transformers) - 1; i >= 0; i-- {
		v = c.transformers[i].ToStorage(v)
	}
	return v
}

// ToDisplay renders the value for display.
func (c Chain) ToDisplay(v Value) string {
	if len(c.transformers) == 0 {
		return v.AsString()
	}
	return c.transformers[len(c.transformers)-1].ToDisplay(v)
}
