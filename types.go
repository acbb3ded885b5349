package postgate

import "github.com/avessi/postgate/editor"

// BlogPost is the record managed by the console. The canonical definition
// lives in the editor package; this alias keeps the store and handler
// signatures in the root package.
type BlogPost = editor.BlogPost

// Categories re-exports the closed category set for templates and callers.
var Categories = editor.Categories

// Image holds metadata for an uploaded post image.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}
