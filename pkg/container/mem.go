package container

import "fmt"

// MemContainer is an in-memory Container used by tests and examples.
type MemContainer struct {
	// Entries in traversal order
	Entries []*MemDataset

	// Attrs on the container root
	Attrs map[string]float64
}

// MemDataset is an in-memory dataset entry.
type MemDataset struct {
	Name    string
	Dims    []int
	Numeric bool
	Values  []float32
	DSAttrs map[string]float64
}

// NewMemDataset builds a numeric in-memory entry.
func NewMemDataset(name string, dims []int, values []float32) *MemDataset {
	return &MemDataset{Name: name, Dims: dims, Numeric: true, Values: values}
}

func (c *MemContainer) Datasets() ([]Dataset, error) {
	out := make([]Dataset, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e
	}
	return out, nil
}

func (c *MemContainer) AttrNames() []string {
	return attrNames(c.Attrs)
}

func (c *MemContainer) AttrFloat(name string) (float64, error) {
	return attrFloat(c.Attrs, name)
}

func (c *MemContainer) Close() error { return nil }

func (d *MemDataset) Path() string { return d.Name }

func (d *MemDataset) Shape() []int { return d.Dims }

func (d *MemDataset) IsNumeric() bool { return d.Numeric }

func (d *MemDataset) ReadFloat32() ([]float32, error) {
	out := make([]float32, len(d.Values))
	copy(out, d.Values)
	return out, nil
}

func (d *MemDataset) AttrNames() []string { return attrNames(d.DSAttrs) }

func (d *MemDataset) AttrFloat(name string) (float64, error) {
	return attrFloat(d.DSAttrs, name)
}

func attrNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	return names
}

func attrFloat(m map[string]float64, name string) (float64, error) {
	v, ok := m[name]
	if !ok {
		return 0, fmt.Errorf("attribute not found: %s", name)
	}
	return v, nil
}
