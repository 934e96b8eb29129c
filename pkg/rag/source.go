package rag

// Source is a citation as the backend sends it. Only Title, Description and
// Text are consumed by the conversation layer; the remaining fields pass
// through untouched.
type Source struct {
	ID          string `json:"id,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title"`
	DocAuthor   string `json:"docAuthor,omitempty"`
	Description string `json:"description,omitempty"`
	DocSource   string `json:"docSource,omitempty"`
	ChunkSource string `json:"chunkSource,omitempty"`
	Published   string `json:"published,omitempty"`
	Link        string `json:"link,omitempty"`
	Chunk       string `json:"chunk,omitempty"`
	Text        string `json:"text,omitempty"`
}

// DisplayTitle returns the human label of the citation, falling back to the
// raw title (usually a file name) when no description is present.
func (s Source) DisplayTitle() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Title
}
