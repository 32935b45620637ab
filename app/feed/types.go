package feed

type Metadata struct {
	Title string
	Link  string
}

// Item is a discovered feed entry. It is re-derived on every fetch and never stored.
type Item struct {
	GUID  string
	Title string
	Link  string

	EnclosureURL  string // first RSS enclosure, if any
	EnclosureType string
}
