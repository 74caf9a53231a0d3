package query

// Parameter is a placeholder operand bound at execution time by a compiled query.
type Parameter struct {
	// Name is optional; unnamed parameters render as "?".
	Name string
}

// NewParameter creates an unnamed positional parameter.
func NewParameter() *Parameter { return &Parameter{} }

// String renders the placeholder.
func (p *Parameter) String() string {
	if p.Name != "" {
		return ":" + p.Name
	}
	return "?"
}
