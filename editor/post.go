// Package editor provides the post record and the controlled form that
// edits it. The form holds a freely mutable scratch copy of a post and
// hands the finished record to a caller-supplied save function; persistence
// never happens inside the form.
package editor

// BlogPost is the record edited by the admin console. An empty ID marks a
// post that has not been created yet; the store assigns one on first save.
// Posts have no identity beyond ID and are fully replaced on each edit.
type BlogPost struct {
	ID       string
	Title    string
	Category string
	Excerpt  string
	Content  string
	Author   string
	Date     string // ISO date, YYYY-MM-DD
	Image    string // URL, typically under /public/uploads/
}

// Categories is the closed set of post categories the console accepts.
var Categories = []string{
	"Design",
	"Development",
	"Marketing",
	"Business",
	"Technology",
}

// ValidCategory reports whether c is in the closed category set. The empty
// string is valid: category is optional.
func ValidCategory(c string) bool {
	if c == "" {
		return true
	}
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
