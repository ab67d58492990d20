package metadata

import "context"

// StaticRegistry serves a fixed set of property bags. It backs
// simulate mode and tests, where exercising the discovery pipeline
// must not depend on host hardware.
type StaticRegistry struct {
	Bags []*Metadata

	// Err, when set, is returned by the list operations to model a
	// registry-wide enumeration failure.
	Err error
}

func (r *StaticRegistry) ListAll(ctx context.Context) ([]*Metadata, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*Metadata, len(r.Bags))
	copy(out, r.Bags)
	return out, nil
}

func (r *StaticRegistry) ListRemovable(ctx context.Context) ([]*Metadata, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	var bags []*Metadata
	for _, bag := range r.Bags {
		if bag.Removable && bag.Ejectable {
			bags = append(bags, bag)
		}
	}
	return bags, nil
}

func (r *StaticRegistry) Query(ctx context.Context, devicePath string) *Metadata {
	for _, bag := range r.Bags {
		if bag.DevicePath == devicePath {
			return bag
		}
	}
	return &Metadata{DevicePath: devicePath}
}
