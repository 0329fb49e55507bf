package domain

// RoomID identifies a chat room (Matrix room ID or Feishu chat_id)
type RoomID string

// UserID identifies a chat user (Matrix user ID or Feishu open_id)
type UserID string

// EventID identifies an inbound event
type EventID string

// ImageInfo describes an uploaded image
type ImageInfo struct {
	MimeType string `json:"mimetype"`
	Width    int    `json:"w"`
	Height   int    `json:"h"`
	Size     int    `json:"size"`
}

// Image is an image stored on the chat service.
// Ref is the backend's media reference (mxc:// URI or Feishu image_key).
type Image struct {
	Ref  string
	Info ImageInfo
}

// TextEvent is an inbound text message
type TextEvent struct {
	Room    RoomID
	Sender  UserID
	EventID EventID
	Body    string
}

// ImageEvent is an inbound image message
type ImageEvent struct {
	Room     RoomID
	Sender   UserID
	EventID  EventID
	Filename string
	Image    Image
}
