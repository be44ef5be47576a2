// ABOUTME: Core data models for academic source documents, stored records, and query results.
// ABOUTME: Provides constructor functions and type definitions shared by ingestion and retrieval.
package models

// Document is a single academic source as it arrives from an ingestion file.
type Document struct {
	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors" yaml:"authors"`
	Year     *int     `json:"year,omitempty" yaml:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	FullText string   `json:"full_text,omitempty" yaml:"full_text,omitempty"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
}

// SourceRecord is an academic source held by a SourceStore.
type SourceRecord struct {
	ID         int64
	Title      string
	Authors    []string
	Year       *int
	Abstract   string
	FullText   string
	SourceType string
	Embedding  []float64 // nil until successfully embedded
}

// NewSourceRecord builds an unsaved record from an ingestion document.
// The embedding is attached separately once the gateway has produced one.
func NewSourceRecord(doc Document) *SourceRecord {
	return &SourceRecord{
		Title:      doc.Title,
		Authors:    CopyAuthors(doc.Authors),
		Year:       CopyYear(doc.Year),
		Abstract:   doc.Abstract,
		FullText:   doc.FullText,
		SourceType: doc.Type,
	}
}

// HasEmbedding reports whether the record carries an embedding vector.
func (r *SourceRecord) HasEmbedding() bool {
	return r.Embedding != nil
}

// Clone returns a deep copy so stores never share slices with callers.
func (r *SourceRecord) Clone() *SourceRecord {
	c := *r
	c.Authors = CopyAuthors(r.Authors)
	c.Year = CopyYear(r.Year)
	if r.Embedding != nil {
		c.Embedding = make([]float64, len(r.Embedding))
		copy(c.Embedding, r.Embedding)
	}
	return &c
}

// Result projects the record into a ranked query result at the given distance.
func (r *SourceRecord) Result(distance float64) QueryResult {
	return QueryResult{
		ID:         r.ID,
		Title:      r.Title,
		Authors:    CopyAuthors(r.Authors),
		Year:       CopyYear(r.Year),
		Abstract:   r.Abstract,
		SourceType: r.SourceType,
		Distance:   distance,
	}
}

// QueryResult is one ranked match returned by a nearest-neighbor query.
type QueryResult struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Year       *int     `json:"year"`
	Abstract   string   `json:"abstract"`
	SourceType string   `json:"source_type"`
	Distance   float64  `json:"distance"`
}

// CopyAuthors returns a fresh, order-preserving copy of an author list.
// A nil list becomes an empty one so results always serialize as an array.
func CopyAuthors(authors []string) []string {
	out := make([]string, len(authors))
	copy(out, authors)
	return out
}

// CopyYear returns a copy of an optional publication year.
func CopyYear(year *int) *int {
	if year == nil {
		return nil
	}
	y := *year
	return &y
}
