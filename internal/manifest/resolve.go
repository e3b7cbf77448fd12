package manifest

import "fmt"

// Resolver answers two-level section selections against a parsed manifest.
// A main section is one whose range is not strictly contained in any other
// section's range; every other section is a sub-section of the main whose
// range holds its start page.
type Resolver struct {
	sections []Section
}

// NewResolver builds a Resolver over sections. Order is preserved.
func NewResolver(sections []Section) *Resolver {
	return &Resolver{sections: sections}
}

// Sections returns all parsed sections in manifest order.
func (r *Resolver) Sections() []Section { return r.sections }

// MainSections returns the top-level sections: those not strictly contained
// in any other section's range.
func (r *Resolver) MainSections() []Section {
	var mains []Section
	for i, s := range r.sections {
		contained := false
		for j, other := range r.sections {
			if i == j {
				continue
			}
			if strictlyContains(other, s) {
				contained = true
				break
			}
		}
		if !contained {
			mains = append(mains, s)
		}
	}
	return mains
}

// SubSections returns the sub-sections of main: every other section whose
// start page lies inside main's range.
func (r *Resolver) SubSections(main Section) []Section {
	var subs []Section
	for _, s := range r.sections {
		if s == main {
			continue
		}
		if main.Contains(s.Start) {
			subs = append(subs, s)
		}
	}
	return subs
}

// Lookup finds a section by name.
func (r *Resolver) Lookup(name string) (Section, bool) {
	for _, s := range r.sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Resolve expands a selection into page numbers. When subName is non-empty
// the sub-section wins; it must be a sub-section of mainName.
func (r *Resolver) Resolve(mainName, subName string) ([]int, error) {
	main, ok := r.Lookup(mainName)
	if !ok {
		return nil, fmt.Errorf("unknown section %q", mainName)
	}
	if subName == "" {
		return main.Pages(), nil
	}
	sub, ok := r.Lookup(subName)
	if !ok {
		return nil, fmt.Errorf("unknown section %q", subName)
	}
	if !main.Contains(sub.Start) {
		return nil, fmt.Errorf("section %q is not a sub-section of %q", subName, mainName)
	}
	return sub.Pages(), nil
}

// strictlyContains reports whether outer's range holds inner's and is larger.
func strictlyContains(outer, inner Section) bool {
	if outer.Start > inner.Start || outer.End < inner.End {
		return false
	}
	return outer.Start != inner.Start || outer.End != inner.End
}
