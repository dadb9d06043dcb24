package container

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// hdf5Container adapts an HDF5 file to the Container interface.
type hdf5Container struct {
	file *hdf5.File
}

// OpenHDF5 opens an HDF5 file as a Container.
func OpenHDF5(path string) (Container, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening HDF5 file: %w", err)
	}
	return &hdf5Container{file: f}, nil
}

func (c *hdf5Container) Datasets() ([]Dataset, error) {
	var out []Dataset
	err := hdf5.Walk(c.file.Root(), func(path string, obj interface{}, err error) error {
		if err != nil {
			// Unreadable entries are skipped rather than failing the
			// whole enumeration; they cannot be the primary signal.
			return nil
		}
		if ds, ok := obj.(*hdf5.Dataset); ok {
			out = append(out, &hdf5Dataset{ds: ds})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking HDF5 hierarchy: %w", err)
	}
	return out, nil
}

func (c *hdf5Container) AttrNames() []string {
	return c.file.Root().Attrs()
}

func (c *hdf5Container) AttrFloat(name string) (float64, error) {
	return readAttrFloat(c.file.Root().Attr(name), name)
}

func (c *hdf5Container) Close() error {
	return c.file.Close()
}

// hdf5Dataset adapts an HDF5 dataset to the Dataset interface.
type hdf5Dataset struct {
	ds *hdf5.Dataset
}

func (d *hdf5Dataset) Path() string {
	return d.ds.Path()
}

func (d *hdf5Dataset) Shape() []int {
	dims := d.ds.Shape()
	shape := make([]int, len(dims))
	for i, v := range dims {
		shape[i] = int(v)
	}
	return shape
}

func (d *hdf5Dataset) IsNumeric() bool {
	t, err := d.ds.GoType()
	if err != nil {
		return false
	}
	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (d *hdf5Dataset) ReadFloat32() ([]float32, error) {
	return d.ds.ReadFloat32()
}

func (d *hdf5Dataset) AttrNames() []string {
	return d.ds.Attrs()
}

func (d *hdf5Dataset) AttrFloat(name string) (float64, error) {
	return readAttrFloat(d.ds.Attr(name), name)
}

// readAttrFloat reads a scalar or small-array attribute as a float, taking
// the first element of an array value.
func readAttrFloat(attr *hdf5.Attribute, name string) (float64, error) {
	if attr == nil {
		return 0, fmt.Errorf("attribute not found: %s", name)
	}
	vals, err := attr.ReadFloat64()
	if err != nil {
		return 0, fmt.Errorf("reading attribute %s: %w", name, err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %s is empty", name)
	}
	return vals[0], nil
}
