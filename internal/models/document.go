package models

// Document is a policy/SOP document in the canonical shape returned to the agent.
// Documents are produced by the knowledge normalizer and never mutated afterwards.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	URI     string `json:"uri"`
}

// IndexedDocument is the short listing entry returned by /list_docs
type IndexedDocument struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SearchRequest is the body of POST /search
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse is the envelope returned by POST /search.
// Status is "success" or "error"; Results is never nil.
type SearchResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message,omitempty"`
	Results []Document `json:"results"`
}
