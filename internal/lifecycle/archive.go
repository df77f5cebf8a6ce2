package lifecycle

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Hit is one archive search result.
type Hit struct {
	ID        string
	Tool      string
	Output    string
	Iteration int
	Score     float64
}

// Archive is a searchable store of evicted tool result payloads. It
// backs the on-demand retrieval promised by the count-only placeholders.
type Archive struct {
	index bleve.Index
}

// NewArchive creates an in-memory archive index.
func NewArchive() (*Archive, error) {
	index, err := bleve.NewMemOnly(buildArchiveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create archive index: %w", err)
	}
	return &Archive{index: index}, nil
}

// buildArchiveMapping indexes tool and iteration as stored keywords and
// the payload as analyzed, stored text.
func buildArchiveMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	toolField := bleve.NewTextFieldMapping()
	toolField.Analyzer = keyword.Name
	toolField.Store = true
	toolField.Index = true
	doc.AddFieldMappingsAt("tool", toolField)

	outputField := bleve.NewTextFieldMapping()
	outputField.Analyzer = standard.Name
	outputField.Store = true
	outputField.Index = true
	doc.AddFieldMappingsAt("output", outputField)

	inputField := bleve.NewTextFieldMapping()
	inputField.Analyzer = standard.Name
	inputField.Store = false
	inputField.Index = true
	doc.AddFieldMappingsAt("input", inputField)

	iterField := bleve.NewNumericFieldMapping()
	iterField.Store = true
	doc.AddFieldMappingsAt("iteration", iterField)

	indexMapping.DefaultMapping = doc
	return indexMapping
}

// Index stores one evicted payload.
func (a *Archive) Index(id, tool, input, output string, iteration int) error {
	return a.index.Index(id, map[string]interface{}{
		"tool":      tool,
		"input":     input,
		"output":    output,
		"iteration": iteration,
	})
}

// Search returns the top k archived results matching the query.
func (a *Archive) Search(query string, k int) ([]Hit, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = k
	req.Fields = []string{"tool", "output", "iteration"}

	result, err := a.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("archive search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if tool, ok := h.Fields["tool"].(string); ok {
			hit.Tool = tool
		}
		if output, ok := h.Fields["output"].(string); ok {
			hit.Output = output
		}
		if iter, ok := h.Fields["iteration"].(float64); ok {
			hit.Iteration = int(iter)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the index.
func (a *Archive) Close() error {
	return a.index.Close()
}
