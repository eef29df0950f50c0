package notifier

import "context"

// Message is a formatted alert.
type Message struct {
	// Text is the plain-text fallback shown in notifications.
	Text string
	// Header is the bold first line.
	Header string
	// Body is an optional paragraph under a divider.
	Body string
}

// File is a media upload.
type File struct {
	// Name is the file name shown in the channel.
	Name string
	// Title is the caption of the upload.
	Title string
	// Content is the raw file content.
	Content []byte
}

// Notifier sends alerts and uploads to a chat channel.
type Notifier interface {
	PostMessage(ctx context.Context, channel string, msg Message) error
	UploadFile(ctx context.Context, channel string, file File) error
}

// Nop is a no-op notifier used when chat is not configured and in tests.
type Nop struct{}

// PostMessage does nothing.
func (Nop) PostMessage(context.Context, string, Message) error { return nil }

// UploadFile does nothing.
func (Nop) UploadFile(context.Context, string, File) error { return nil }
