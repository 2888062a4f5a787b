// Package querylang parses the structured query language shared by the LLM fallback
// generator and the direct query endpoint:
//
//	query    {"operations":[{"name":"tables","kind":"read","collection":"tables","aggregation":"list"}]}
//	mutation {"operations":[{"name":"createTable","kind":"create","collection":"tables","data":{"name":"5"}}]}
//
// A single operation object may be given in place of the operations wrapper.
package querylang

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"restaurant-assistant/internal/common/validation"
	"restaurant-assistant/internal/models"
)

const (
	KeywordQuery    = "query"
	KeywordMutation = "mutation"
)

var (
	ErrMissingKeyword = errors.New("QUERY_KEYWORD_MISSING")
	ErrInvalidPayload = errors.New("QUERY_PAYLOAD_INVALID")
)

var payloadSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"operations"},
	"properties": map[string]interface{}{
		"operations": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"maxItems": 5,
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"kind", "collection"},
				"properties": map[string]interface{}{
					"name":        map[string]interface{}{"type": "string"},
					"kind":        map[string]interface{}{"type": "string", "enum": []interface{}{"read", "create", "update", "delete"}},
					"collection":  map[string]interface{}{"type": "string", "enum": collectionsEnum()},
					"aggregation": map[string]interface{}{"type": "string", "enum": []interface{}{"", "count", "sum", "average", "groupBy", "list"}},
					"filters":     map[string]interface{}{"type": "object"},
					"fields":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"data":        map[string]interface{}{"type": "object"},
				},
			},
		},
	},
}

func collectionsEnum() []interface{} {
	out := make([]interface{}, 0, len(models.TenantCollections))
	for _, c := range models.TenantCollections {
		out = append(out, c)
	}
	return out
}

const schemaName = "querylang.payload"

// Parser validates and decodes structured queries.
type Parser struct {
	schemas *validation.SchemaSet
}

func NewParser() (*Parser, error) {
	schemas := validation.NewSchemaSet()
	if err := schemas.Register(schemaName, payloadSchema); err != nil {
		return nil, err
	}
	return &Parser{schemas: schemas}, nil
}

type payload struct {
	Operations []models.Operation `json:"operations"`
}

// Parse returns the operations described by text. The keyword must lead the text
// (after optional code fences) and must agree with every operation's kind.
func (p *Parser) Parse(text string) ([]models.Operation, error) {
	text = stripFences(text)

	keyword, body := splitKeyword(text)
	if keyword == "" {
		return nil, ErrMissingKeyword
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	var generic map[string]interface{}
	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, wrapped := generic["operations"]; !wrapped {
		generic = map[string]interface{}{"operations": []interface{}{generic}}
	}

	result, err := p.schemas.Validate(schemaName, generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, result.Error())
	}

	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var decoded payload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	for i := range decoded.Operations {
		op := &decoded.Operations[i]
		if keyword == KeywordQuery && op.Kind != models.KindRead {
			return nil, fmt.Errorf("%w: query cannot %s", ErrInvalidPayload, op.Kind)
		}
		if keyword == KeywordMutation && op.Kind == models.KindRead {
			return nil, fmt.Errorf("%w: mutation cannot read", ErrInvalidPayload)
		}
		if op.Kind == models.KindRead && op.Aggregation == models.AggregationNone {
			op.Aggregation = models.AggregationList
		}
		if op.Name == "" {
			op.Name = DefaultName(op)
		}
	}
	return decoded.Operations, nil
}

// Format renders operations in the structured query language.
func Format(ops []models.Operation) string {
	keyword := KeywordQuery
	for _, op := range ops {
		if op.Kind.IsMutation() {
			keyword = KeywordMutation
			break
		}
	}
	clean := make([]models.Operation, len(ops))
	for i, op := range ops {
		op.References = nil
		op.Unresolved = nil
		clean[i] = op
	}
	raw, _ := json.Marshal(payload{Operations: clean})
	return keyword + " " + string(raw)
}

// DefaultName derives the reply-template key for an operation without one:
// reads use the collection name, mutations use verb + singular collection.
func DefaultName(op *models.Operation) string {
	if op.Kind == models.KindRead || op.Kind == "" {
		return op.Collection
	}
	return string(op.Kind) + singular(op.Collection)
}

func singular(collection string) string {
	switch collection {
	case models.CollectionMenuItems:
		return "MenuItem"
	case models.CollectionInventory:
		return "InventoryItem"
	}
	name := strings.TrimSuffix(collection, "s")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func splitKeyword(text string) (string, string) {
	lower := strings.ToLower(text)
	for _, kw := range []string{KeywordMutation, KeywordQuery} {
		if strings.HasPrefix(lower, kw) {
			rest := text[len(kw):]
			if rest == "" || rest[0] == ' ' || rest[0] == '{' || rest[0] == '\n' || rest[0] == '\t' {
				return kw, rest
			}
		}
	}
	return "", ""
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		first := strings.TrimSpace(text[:nl])
		if first == "" || !strings.ContainsAny(first, "{ ") {
			text = text[nl+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
