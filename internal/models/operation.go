package models

type OperationKind string

const (
	KindRead   OperationKind = "read"
	KindCreate OperationKind = "create"
	KindUpdate OperationKind = "update"
	KindDelete OperationKind = "delete"
)

func (k OperationKind) Valid() bool {
	switch k {
	case KindRead, KindCreate, KindUpdate, KindDelete:
		return true
	}
	return false
}

func (k OperationKind) IsMutation() bool {
	return k == KindCreate || k == KindUpdate || k == KindDelete
}

type Aggregation string

const (
	AggregationNone    Aggregation = ""
	AggregationCount   Aggregation = "count"
	AggregationSum     Aggregation = "sum"
	AggregationAverage Aggregation = "average"
	AggregationGroupBy Aggregation = "groupBy"
	AggregationList    Aggregation = "list"
)

func (a Aggregation) Valid() bool {
	switch a {
	case AggregationNone, AggregationCount, AggregationSum, AggregationAverage, AggregationGroupBy, AggregationList:
		return true
	}
	return false
}

// Operation is a structured, not-yet-authorized request against one tenant collection.
// The tenant id is never part of it; the engine injects it from the Access Grant.
type Operation struct {
	Name        string                 `json:"name"`
	Kind        OperationKind          `json:"kind"`
	Collection  string                 `json:"collection"`
	Aggregation Aggregation            `json:"aggregation,omitempty"`
	Filters     map[string]interface{} `json:"filters,omitempty"`
	Fields      []string               `json:"fields,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	References  []Reference            `json:"references,omitempty"`
	Unresolved  []string               `json:"unresolved,omitempty"`
}

// Reference is a free-text value that must be resolved to a canonical tenant id
// before the operation can run, e.g. a dish name inside an order's items.
type Reference struct {
	Phrase     string `json:"phrase"`
	Collection string `json:"collection"`
	Field      string `json:"field"`
	Index      int    `json:"index"`
}

func (o *Operation) IsResolved() bool {
	return len(o.Unresolved) == 0
}

// Plan is the Operation Generator's output for one utterance.
type Plan struct {
	Intent          Intent      `json:"intent"`
	Operations      []Operation `json:"operations"`
	Source          PlanSource  `json:"source"`
	TemplateVersion string      `json:"templateVersion,omitempty"`
}

type PlanSource string

const (
	PlanSourceTemplate PlanSource = "template"
	PlanSourceLLM      PlanSource = "llm"
	PlanSourceDirect   PlanSource = "direct"
)

// Dominant returns the operation whose name drives the reply template.
func (p *Plan) Dominant() *Operation {
	if p == nil || len(p.Operations) == 0 {
		return nil
	}
	return &p.Operations[0]
}

// Unresolved collects unresolved references across all operations.
func (p *Plan) Unresolved() []string {
	var out []string
	for _, op := range p.Operations {
		out = append(out, op.Unresolved...)
	}
	return out
}
