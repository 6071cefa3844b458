package osrm

import (
	"strconv"
	"strings"
)

// Param is one query parameter: either a single scalar value or a list that
// is joined with ";" on the wire. The zero value of a scalar or an all-empty
// list marks the parameter as unset.
type Param struct {
	Name  string
	value string
	list  []string
	isSet bool
}

// Scalar returns a single-valued parameter. An empty value is unset.
func Scalar(name, value string) Param {
	return Param{Name: name, value: value, isSet: value != ""}
}

// Bool returns "true" for b and an unset parameter otherwise.
func Bool(name string, b bool) Param {
	if !b {
		return Param{Name: name}
	}
	return Param{Name: name, value: strconv.FormatBool(b), isSet: true}
}

// List returns a ";"-joined list parameter. Empty elements are kept so the
// list stays aligned with the coordinates; a list with no non-empty element
// is unset.
func List(name string, values []string) Param {
	p := Param{Name: name, list: values}
	for _, v := range values {
		if v != "" {
			p.isSet = true
			break
		}
	}
	return p
}

// Ints returns a list parameter from integer indices. An empty slice is unset.
func Ints(name string, values []int) Param {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}
	return List(name, s)
}

// IsList reports whether p is a list parameter.
func (p Param) IsList() bool { return p.list != nil }

// Set reports whether p is rendered into the query.
func (p Param) Set() bool { return p.isSet }

// Encode renders the parameter value.
func (p Param) Encode() string {
	if p.list != nil {
		return strings.Join(p.list, ";")
	}
	return p.value
}

// encodeQuery renders set params in the given order. Values are written raw:
// the service expects literal ";" and "," separators.
func encodeQuery(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		if !p.Set() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Encode())
	}
	return b.String()
}
