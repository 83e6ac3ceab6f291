// Package tutorial holds the static help pages shown from the hub.
package tutorial

// Page is one screen of the help tutorial.
type Page struct {
	Title string
	Body  string
}

// DefaultPages is the built-in tutorial.
var DefaultPages = []Page{
	{
		Title: "Welcome to Mein Genie",
		Body:  "Mein Genie helps you deal with German paperwork. Pick a service in the hub to begin.",
	},
	{
		Title: "Formino",
		Body:  "Upload or pick a form, describe what you need, then answer Formino's questions one at a time.",
	},
	{
		Title: "Speaking instead of typing",
		Body:  "Use /voice to record an answer and /stop when you are done. The transcript lands in your input for you to check before sending.",
	},
	{
		Title: "Review and download",
		Body:  "When all fields are collected, confirm the summary to receive the filled PDF, or reject it to start over.",
	},
	{
		Title: "Your profile",
		Body:  "Keep your personal data and documents up to date so forms can be pre-filled.",
	},
}

// Pager steps through a fixed list of pages. The zero value is empty.
type Pager struct {
	pages []Page
	index int
}

// NewPager returns a pager positioned on the first page. Nil pages selects
// DefaultPages.
func NewPager(pages []Page) *Pager {
	if pages == nil {
		pages = DefaultPages
	}
	return &Pager{pages: pages}
}

func (p *Pager) Len() int { return len(p.pages) }

func (p *Pager) Index() int { return p.index }

// Current returns the page on display; ok is false for an empty pager.
func (p *Pager) Current() (Page, bool) {
	if len(p.pages) == 0 {
		return Page{}, false
	}
	return p.pages[p.index], true
}

// Next advances one page and reports whether it moved.
func (p *Pager) Next() bool {
	if p.index+1 >= len(p.pages) {
		return false
	}
	p.index++
	return true
}

// Prev goes back one page and reports whether it moved.
func (p *Pager) Prev() bool {
	if p.index == 0 {
		return false
	}
	p.index--
	return true
}

func (p *Pager) First() bool { return p.index == 0 }

func (p *Pager) Last() bool { return len(p.pages) == 0 || p.index == len(p.pages)-1 }
