// Package corpus loads emission-factor records with precomputed embeddings
// from JSON files into an immutable in-memory corpus.
package corpus

import "fmt"

// Record is a single emission factor from the EFDB export. Only the
// identifier and the embedding vector are required at load time; every
// descriptive field is optional.
type Record struct {
	EFID                 int64     `json:"ef_id"`
	IPCCCategory1996     string    `json:"ipcc_category_1996,omitempty"`
	IPCCCategory2006     string    `json:"ipcc_category_2006,omitempty"`
	Gas                  string    `json:"gas,omitempty"`
	Fuel1996             string    `json:"fuel_1996,omitempty"`
	Fuel2006             string    `json:"fuel_2006,omitempty"`
	CPool                string    `json:"c_pool,omitempty"`
	TypeOfParameter      string    `json:"type_of_parameter,omitempty"`
	Description          string    `json:"description,omitempty"`
	Technologies         string    `json:"technologies,omitempty"`
	ParametersConditions string    `json:"parameters_conditions,omitempty"`
	Region               string    `json:"region,omitempty"`
	AbatementTech        string    `json:"abatement_tech,omitempty"`
	OtherProperties      string    `json:"other_properties,omitempty"`
	Value                string    `json:"value,omitempty"`
	Unit                 string    `json:"unit,omitempty"`
	Equation             string    `json:"equation,omitempty"`
	IPCCWorksheet        string    `json:"ipcc_worksheet,omitempty"`
	TechnicalReference   string    `json:"technical_reference,omitempty"`
	SourceOfData         string    `json:"source_of_data,omitempty"`
	DataProvider         string    `json:"data_provider,omitempty"`
	Vector               []float32 `json:"vector,omitempty"`
}

// WithoutVector returns a copy of the record with the embedding stripped,
// suitable for inclusion in search responses.
func (r Record) WithoutVector() Record {
	r.Vector = nil
	return r
}

// Corpus is an ordered, immutable collection of records sharing one
// embedding dimension. Insertion order is load order.
type Corpus struct {
	records   []Record
	dimension int
}

// New assembles a corpus from records. Every vector must share one non-zero
// dimension; insertion order is preserved. The caller hands over ownership of
// records and must not modify them afterwards.
func New(records []Record) (*Corpus, error) {
	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}
	dim := len(records[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("corpus: record 0 has no vector")
	}
	for i, r := range records {
		if len(r.Vector) != dim {
			return nil, fmt.Errorf("corpus: record %d has dimension %d, corpus has %d", i, len(r.Vector), dim)
		}
	}
	return &Corpus{records: records, dimension: dim}, nil
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	return len(c.records)
}

// Dimension returns the embedding dimension shared by all records.
func (c *Corpus) Dimension() int {
	return c.dimension
}

// Record returns a copy of the record at ordinal position i.
func (c *Corpus) Record(i int) Record {
	return c.records[i]
}

// VectorAt returns the embedding of the record at ordinal position i.
// The returned slice must not be modified.
func (c *Corpus) VectorAt(i int) []float32 {
	return c.records[i].Vector
}
