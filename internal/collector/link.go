package collector

import "io"

// initialLinksCapacity is the initial capacity of the links slice, it does not mean this is the maximum capacity.
const initialLinksCapacity = 100

// Link is a raw link found in a document, as written, together with the text describing it.
type Link struct {
	URL string
	// Text is the visible text of the element, or its alt or title attribute.
	Text string
}

// LinkCollector is a collector that collects links from a reader.
type LinkCollector interface {
	GetLinks(r io.Reader) ([]Link, error)
}
