package planreview

// ColorPair pairs a foreground color with an optional background color.
type ColorPair struct {
	Foreground string
	Background string
}

// Styles are the semantic colors used when rendering a change diff and the
// surrounding review chrome.
type Styles struct {
	Added    ColorPair // added diff parts
	Removed  ColorPair // removed diff parts
	Context  ColorPair // unchanged diff parts
	Moved    ColorPair // reordered array items
	Header   ColorPair // scene and field headers
	Accepted ColorPair // accepted status marker
	Rejected ColorPair // rejected status marker
	Pending  ColorPair // pending status marker
	Footer   ColorPair // statistics and help footer
}

// Theme provides the color styles for a rendering surface.
type Theme interface {
	Styles() Styles
}
