package models

// Notification is the payload handed to the fan-out adapter. The json-tagged
// fields become the push message body; Topic/Target select the destination
// and never travel to the device.
type Notification struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Channel string `json:"channel"`
	ID      string `json:"id,omitempty"`

	Topic      string            `json:"-"`
	Target     string            `json:"-"`
	Attributes map[string]string `json:"-"`
}
