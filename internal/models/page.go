package models

// Page is one composed timeline page in display order
type Page struct {
	Selector FeedSelector `json:"-"`
	Items    []Item       `json:"items"`
	Order    OrderKey     `json:"order"`
	// Max and Min are the boundary sort-key values of Items, nil when empty
	Max interface{} `json:"-"`
	Min interface{} `json:"-"`
	// SelectedTab is the resolved inbox tab, empty for other feeds
	SelectedTab string `json:"selected_tab,omitempty"`
}

// URIIDs returns the identifiers of the page in display order
func (p *Page) URIIDs() []int64 {
	ids := make([]int64, len(p.Items))
	for i, it := range p.Items {
		ids[i] = it.URIID
	}
	return ids
}

// SetBounds recomputes Max and Min from the items
func (p *Page) SetBounds() {
	p.Max, p.Min = nil, nil
	for _, it := range p.Items {
		v := p.Order.Value(it)
		if p.Max == nil || CompareKeys(v, p.Max) > 0 {
			p.Max = v
		}
		if p.Min == nil || CompareKeys(v, p.Min) < 0 {
			p.Min = v
		}
	}
}

// CursorParams returns the first_<order> and last_<order> values callers
// use to build previous and next links.
func (p *Page) CursorParams() map[string]string {
	params := make(map[string]string, 2)
	if p.Max == nil || p.Min == nil {
		return params
	}
	name := string(p.Order)
	params["first_"+name] = p.Order.FormatCursor(p.Max)
	params["last_"+name] = p.Order.FormatCursor(p.Min)
	return params
}
