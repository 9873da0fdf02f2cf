package domain

// EventKind distinguishes typed text from button presses.
type EventKind string

const (
	KindText   EventKind = "text"
	KindButton EventKind = "button"
)

// Event is one inbound interaction from a chat.
type Event struct {
	Kind  EventKind `json:"type"`
	Value string    `json:"value"`
}

// TextInput builds a text event.
func TextInput(text string) Event { return Event{Kind: KindText, Value: text} }

// ButtonPress builds a button event carrying a callback tag.
func ButtonPress(tag string) Event { return Event{Kind: KindButton, Value: tag} }

// Button is one key of a keyboard layout.
// A button without a Tag sends its Label back as a text event (reply keyboard).
type Button struct {
	Label string `json:"label"`
	Tag   string `json:"tag,omitempty"`
}

// Reply is one outbound message.
type Reply struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
	// Image holds PNG bytes (QR codes).
	Image []byte `json:"image,omitempty"`
	// Notice marks informational replies such as "previous operation discarded".
	Notice bool `json:"notice,omitempty"`
}
