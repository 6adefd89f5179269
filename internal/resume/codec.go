package resume

import (
	"encoding/json"
	"fmt"
	"time"
)

// EncodeBody serializes the persisted body of doc. Identity and timestamps
// belong to the document store and are never written by clients.
func EncodeBody(doc Document) (json.RawMessage, error) {
	body := doc.Clone()
	body.ID = ""
	body.CreatedAt = time.Time{}
	body.LastUpdated = time.Time{}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode resume body: %w", err)
	}
	return data, nil
}

// DecodeBody rebuilds a Document from a stored body plus the metadata the
// store assigned to it. Missing list fields decode as empty lists.
func DecodeBody(body []byte, id string, createdAt, lastUpdated time.Time) (Document, error) {
	doc := NewDocument()
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("decode resume %s: %w", id, err)
	}
	doc.ID = id
	doc.CreatedAt = createdAt
	doc.LastUpdated = lastUpdated
	if doc.Experience == nil {
		doc.Experience = []Experience{}
	}
	if doc.Education == nil {
		doc.Education = []Education{}
	}
	if doc.Skills == nil {
		doc.Skills = []Skill{}
	}
	if doc.Projects == nil {
		doc.Projects = []Project{}
	}
	return doc, nil
}
