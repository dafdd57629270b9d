package cisa

// headerBootstrap is the number of leading Header slots (magic, major,
// minor) read before the version is known.
const headerBootstrap = 3

func blankRecord(k Kind) *Record {
	n := len(schemas[k].Slots)
	return &Record{kind: k, fields: make([]Field, n), children: make([][]*Record, n)}
}

// parseRecord reads one record of kind k. On failure the partial record is
// dropped and only the error is returned.
func parseRecord(c *cursor, k Kind, v Version) (*Record, error) {
	r := blankRecord(k)
	if err := parseSlots(c, r, 0, v); err != nil {
		return nil, err
	}
	return r, nil
}

func parseSlots(c *cursor, r *Record, from int, v Version) error {
	s := schemas[r.kind]
	combined := v.Combined()

	for i := from; i < len(s.Slots); i++ {
		slot := s.Slots[i]
		switch {
		case slot.Type == NestedMarker:
			n := r.fields[slot.ref].Int
			if n < 0 {
				return errorf(ErrTruncatedField, c.pos(), "%v.%s: negative count %d", r.kind, slot.Name, n)
			}
			// Every child consumes at least one byte, so the remaining window
			// bounds the allocation even when n is hostile.
			kids := make([]*Record, 0, min(n, int64(c.remaining())))
			for j := int64(0); j < n; j++ {
				child, err := parseRecord(c, slot.Child, v)
				if err != nil {
					return err
				}
				kids = append(kids, child)
			}
			r.fields[i] = Field{Type: NestedMarker, CountField: slot.ref}
			r.children[i] = kids

		case slot.Type.IsInt():
			f, err := parseField(c, slot, widthFor(r.kind, slot, combined), 0)
			if err != nil {
				return err
			}
			r.fields[i] = f

		default:
			f, err := parseField(c, slot, 0, r.fields[slot.ref].Int)
			if err != nil {
				return err
			}
			r.fields[i] = f
		}
	}
	return nil
}

// parseHeader bootstraps the version from the root record's first fields
// and parses the rest of the header with it.
func parseHeader(c *cursor) (*Record, Version, error) {
	r := blankRecord(KindHeader)
	s := schemas[KindHeader]
	start := c.pos()
	for i := 0; i < headerBootstrap; i++ {
		f, err := parseField(c, s.Slots[i], s.Slots[i].Type.width(), 0)
		if err != nil {
			return nil, Version{}, err
		}
		r.fields[i] = f
	}

	if magic := uint32(r.fields[0].Int); magic != Magic {
		return nil, Version{}, errorf(ErrBadMagic, start, "got %#08x, want %#08x", magic, Magic)
	}
	v := Version{Major: uint8(r.fields[1].Int), Minor: uint8(r.fields[2].Int)}
	if !v.Supported() {
		return nil, Version{}, errorf(ErrUnsupportedVersion, start+4, "version %v outside %d..%d", v, MinVersion, MaxVersion)
	}

	if err := parseSlots(c, r, headerBootstrap, v); err != nil {
		return nil, Version{}, err
	}
	return r, v, nil
}

// Decode parses one record of kind k from the start of buf under version v
// and returns it with the number of bytes consumed. A Header carries its
// own version, which must equal v.
func Decode(buf []byte, k Kind, v Version) (*Record, int, error) {
	if k >= numKinds {
		return nil, 0, errorf(ErrWrongKind, 0, "kind %d", k)
	}
	if !v.Supported() {
		return nil, 0, errorf(ErrUnsupportedVersion, 0, "version %v", v)
	}
	c := newCursor(buf, 0, len(buf))
	if k == KindHeader {
		r, hv, err := parseHeader(c)
		if err != nil {
			return nil, 0, err
		}
		if hv != v {
			return nil, 0, errorf(ErrUnsupportedVersion, 4, "header declares %v, expected %v", hv, v)
		}
		return r, c.pos(), nil
	}
	r, err := parseRecord(c, k, v)
	if err != nil {
		return nil, 0, err
	}
	return r, c.pos(), nil
}

// Encode serialises r under version v. Field widths, count fields and child
// kinds are all validated; on error no bytes are returned.
func Encode(r *Record, v Version) ([]byte, error) {
	if !v.Supported() {
		return nil, errorf(ErrUnsupportedVersion, 0, "version %v", v)
	}
	if r.kind == KindHeader {
		hv := Version{Major: uint8(r.fields[1].Int), Minor: uint8(r.fields[2].Int)}
		if hv != v || r.fields[1].Int > 0xff || r.fields[2].Int > 0xff {
			return nil, errorf(ErrUnsupportedVersion, 4, "header declares %d.%d, encoding as %v", r.fields[1].Int, r.fields[2].Int, v)
		}
	}
	e := newEncoder()
	if err := appendRecord(e, r, v); err != nil {
		return nil, err
	}
	return e.bytes()
}

func appendRecord(e *encoder, r *Record, v Version) error {
	s := schemas[r.kind]
	combined := v.Combined()

	for i, slot := range s.Slots {
		f := r.fields[i]
		switch {
		case slot.Type == NestedMarker:
			kids := r.children[i]
			if want := r.fields[slot.ref].Int; int64(len(kids)) != want {
				return errorf(ErrCountMismatch, e.n, "%v.%s has %d records, count field says %d", r.kind, slot.Name, len(kids), want)
			}
			for _, child := range kids {
				if child.kind != slot.Child {
					return errorf(ErrWrongKind, e.n, "%v.%s holds %v, got %v", r.kind, slot.Name, slot.Child, child.kind)
				}
				if err := appendRecord(e, child, v); err != nil {
					return err
				}
			}

		case slot.Type.IsInt():
			if err := appendField(e, slot, widthFor(r.kind, slot, combined), f, 0); err != nil {
				return err
			}

		default:
			if err := appendField(e, slot, 0, f, r.fields[slot.ref].Int); err != nil {
				return err
			}
		}
	}
	return nil
}
