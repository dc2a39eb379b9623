package imgdiff

// WriteOption represents options for WriteReport
type WriteOption func(*writeOptions)

type writeOptions struct {
	renderer Renderer
	indent   string
}

// defaultWriteOptions returns default write options
func defaultWriteOptions() *writeOptions {
	return &writeOptions{
		renderer: NewHTMLRenderer(),
		indent:   "    ",
	}
}

// WithRenderer sets the renderer producing index.html. nil skips rendering.
func WithRenderer(renderer Renderer) WriteOption {
	return func(opts *writeOptions) {
		opts.renderer = renderer
	}
}

// WithIndent sets the indentation of report.json
func WithIndent(indent string) WriteOption {
	return func(opts *writeOptions) {
		opts.indent = indent
	}
}

// WithWriteOptions passes options to WriteReport when comparing with CompareAndWrite
func WithWriteOptions(options ...WriteOption) CompareOption {
	return func(opts *compareOptions) {
		opts.write = append(opts.write, options...)
	}
}
