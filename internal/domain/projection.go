package domain

import (
	"net/url"
	"strconv"
)

// Projection selects the fields a list query returns.
//
// When Include is non-empty only those fields are kept. Otherwise every
// field except Exclude is kept. The identifier is kept only with WithID.
type Projection struct {
	Include []string
	Exclude []string
	WithID  bool
}

// ParseProjection reads ?field=1 / ?field=0 flags. Only names in known are
// honored; hidden names are never included and always excluded. "_id" and
// "id" both address the identifier.
func ParseProjection(query url.Values, known []string, hidden []string) Projection {
	isHidden := make(map[string]bool, len(hidden))
	for _, h := range hidden {
		isHidden[h] = true
	}

	var p Projection
	for _, key := range []string{IDField, "id"} {
		if flag, ok := parseFlag(query, key); ok && flag {
			p.WithID = true
		}
	}

	for _, name := range known {
		if isHidden[name] {
			continue
		}
		flag, ok := parseFlag(query, name)
		if !ok {
			continue
		}
		if flag {
			p.Include = append(p.Include, name)
		} else {
			p.Exclude = append(p.Exclude, name)
		}
	}

	if len(p.Include) > 0 {
		p.Exclude = nil
		return p
	}
	p.Exclude = append(p.Exclude, hidden...)
	return p
}

func parseFlag(query url.Values, key string) (bool, bool) {
	raw, ok := query[key]
	if !ok || len(raw) == 0 {
		return false, false
	}
	n, err := strconv.Atoi(raw[0])
	if err != nil {
		return false, false
	}
	switch n {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return false, false
}

// Apply returns a copy of r restricted to the projected fields.
func (p Projection) Apply(r Record) Record {
	out := Record{Fields: make(map[string]any, len(r.Fields))}
	if p.WithID {
		out.ID = r.ID
	}

	if len(p.Include) > 0 {
		for _, name := range p.Include {
			if v, ok := r.Fields[name]; ok {
				out.Fields[name] = v
			}
		}
		return out
	}

	drop := make(map[string]bool, len(p.Exclude))
	for _, name := range p.Exclude {
		drop[name] = true
	}
	for k, v := range r.Fields {
		if !drop[k] {
			out.Fields[k] = v
		}
	}
	return out
}
