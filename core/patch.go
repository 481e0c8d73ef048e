package core

import "github.com/volatiletech/null/v8"

// PatchString is a JSON field of a partial update: Set tells whether it was sent and a JSON null
// clears the value.
type PatchString struct {
	Set   bool
	Value null.String
}

func (p *PatchString) UnmarshalJSON(data []byte) error {
	p.Set = true
	return p.Value.UnmarshalJSON(data)
}

// PatchTime is the time.Time counterpart of PatchString.
type PatchTime struct {
	Set   bool
	Value null.Time
}

func (p *PatchTime) UnmarshalJSON(data []byte) error {
	p.Set = true
	return p.Value.UnmarshalJSON(data)
}
