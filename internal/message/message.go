package message

import "encoding/json"

// Message is an outbound reply element. The dialogue core only builds
// these values; how they are delivered is up to the transport layer.
type Message interface {
	isMessage()
}

// Text is a plain text reply.
type Text struct {
	Text string
}

// Flex carries an opaque flex bubble payload. The core treats the
// contents as presentation data and never inspects it.
type Flex struct {
	AltText  string
	Contents json.RawMessage
}

// Carousel is a template carousel of columns with message actions.
// ImageAspectRatio and ImageSize are presentation hints passed through
// to the transport.
type Carousel struct {
	AltText          string
	ImageAspectRatio string
	ImageSize        string
	Columns          []Column
}

// Column is a single carousel card.
type Column struct {
	ImageURL string
	Title    string
	Text     string
	Actions  []Action
}

// Action is a button that sends Text back as a user message when tapped.
type Action struct {
	Label string
	Text  string
}

func (Text) isMessage()     {}
func (Flex) isMessage()     {}
func (Carousel) isMessage() {}

// NewText is a shorthand for the most common reply shape.
func NewText(text string) Text {
	return Text{Text: text}
}
