package domain

// Post is one decoded event from the upstream filtered stream.
type Post struct {
	ID           int64
	AuthorID     int64
	AuthorHandle string
	Text         string
	// URLExpansions maps each shortened URL occurring in Text to its
	// human-visible display form. Filters match against the expanded text,
	// not the wire form.
	URLExpansions map[string]string
}
