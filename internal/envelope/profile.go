package envelope

import (
	"errors"
	"fmt"
	"math"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
)

// profileSchema constrains the kinds of profile fields. Ordering is checked in Go.
const profileSchema = `
#Dimension: {
	name:        string
	lower_hard?: number
	upper_hard?: number
	lower_soft?: number
	upper_soft?: number
}

#Envelope: {
	name: string
	dimensions: [...#Dimension]
}

envelope: #Envelope
`

// Dimension is one named, bounded axis of an action.
type Dimension struct {
	Name   string `json:"name"`
	Bounds Bounds `json:"bounds"`
}

// Profile is a named list of dimension bounds, usually loaded from CUE.
// Omitted hard limits are unbounded and omitted soft limits default to the
// hard ones:
//
//	envelope: {
//		name: "arm"
//		dimensions: [
//			{name: "shoulder", lower_hard: -10, upper_hard: 10, lower_soft: -5, upper_soft: 5},
//			{name: "wrist", lower_hard: -1, upper_hard: 1},
//		]
//	}
type Profile struct {
	Name       string      `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
}

// Bounds returns the per-dimension bounds in declaration order.
func (p *Profile) Bounds() []Bounds {
	out := make([]Bounds, len(p.Dimensions))
	for i, d := range p.Dimensions {
		out[i] = d.Bounds
	}
	return out
}

// Clip clips proposed against the profile's bounds.
func (p *Profile) Clip(proposed Action) Result {
	return Clip(proposed, p.Bounds())
}

// ProfileError reports a profile that failed to load or validate.
type ProfileError struct {
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *ProfileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadProfile reads and parses the CUE profile at path.
func LoadProfile(path string) (*Profile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(path, src)
}

// ParseProfile compiles src as a CUE profile. filename is used in positions.
//
// Every dimension is checked against the ordering precondition; all offending
// dimensions are reported, joined with errors.Join.
func ParseProfile(filename string, src []byte) (*Profile, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(profileSchema, cue.Filename("profile-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("profile schema: %w", err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, &ProfileError{Field: "envelope", Message: err.Error(), Pos: doc.Pos()}
	}

	value := schema.Unify(doc)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &ProfileError{Field: "envelope", Message: err.Error(), Pos: doc.Pos()}
	}

	env := value.LookupPath(cue.ParsePath("envelope"))
	name, err := env.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return nil, &ProfileError{Field: "envelope.name", Message: err.Error(), Pos: env.Pos()}
	}

	iter, err := env.LookupPath(cue.ParsePath("dimensions")).List()
	if err != nil {
		return nil, &ProfileError{Field: "envelope.dimensions", Message: err.Error(), Pos: env.Pos()}
	}

	profile := &Profile{Name: name}
	var errs []error
	for i := 0; iter.Next(); i++ {
		dim, err := parseDimension(iter.Value(), i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		profile.Dimensions = append(profile.Dimensions, dim)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return profile, nil
}

func parseDimension(v cue.Value, index int) (Dimension, error) {
	field := fmt.Sprintf("envelope.dimensions[%d]", index)

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return Dimension{}, &ProfileError{Field: field + ".name", Message: err.Error(), Pos: v.Pos()}
	}

	var b Bounds
	if b.LowerHard, err = lookupLimit(v, field, "lower_hard", math.Inf(-1)); err != nil {
		return Dimension{}, err
	}
	if b.UpperHard, err = lookupLimit(v, field, "upper_hard", math.Inf(1)); err != nil {
		return Dimension{}, err
	}
	if b.LowerSoft, err = lookupLimit(v, field, "lower_soft", b.LowerHard); err != nil {
		return Dimension{}, err
	}
	if b.UpperSoft, err = lookupLimit(v, field, "upper_soft", b.UpperHard); err != nil {
		return Dimension{}, err
	}

	if err := b.Validate(); err != nil {
		return Dimension{}, &ProfileError{
			Field:   fmt.Sprintf("%s (%s)", field, name),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	return Dimension{Name: name, Bounds: b}, nil
}

// lookupLimit returns the concrete number at key, or def when it is omitted.
func lookupLimit(v cue.Value, field, key string, def float64) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() || !fv.IsConcrete() {
		return def, nil
	}
	x, err := fv.Float64()
	if err != nil {
		return 0, &ProfileError{Field: field + "." + key, Message: err.Error(), Pos: fv.Pos()}
	}
	return x, nil
}
