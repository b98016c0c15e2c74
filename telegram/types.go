package telegram

// Update is one event from the bot API update feed.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// Msg returns whichever message payload the update carries, nil for
// update kinds without one (polls, chat member changes, ...).
func (u *Update) Msg() *Message {
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

// Message is a chat message as delivered inside an Update.
type Message struct {
	MessageID int64     `json:"message_id"`
	Chat      Chat      `json:"chat"`
	From      *User     `json:"from,omitempty"`
	Text      string    `json:"text,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Document  *Document `json:"document,omitempty"`
	ReplyTo   *Message  `json:"reply_to_message,omitempty"`
}

// Chat identifies the conversation a message belongs to.
// Channel and supergroup ids are negative.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the sender of a message.
type User struct {
	Username string `json:"username,omitempty"`
}

// Document is a generic file attachment.
type Document struct {
	FileID       string     `json:"file_id"`
	FileUniqueID string     `json:"file_unique_id"`
	FileName     string     `json:"file_name,omitempty"`
	MimeType     string     `json:"mime_type,omitempty"`
	FileSize     int64      `json:"file_size,omitempty"`
	Thumbnail    *PhotoSize `json:"thumbnail,omitempty"`
	Thumb        *PhotoSize `json:"thumb,omitempty"`
}

// ThumbFileID returns the file handle of the document thumbnail, accepting
// both the current "thumbnail" field and the pre-Bot-API-6.6 "thumb" name.
func (d *Document) ThumbFileID() string {
	if d.Thumbnail != nil {
		return d.Thumbnail.FileID
	}
	if d.Thumb != nil {
		return d.Thumb.FileID
	}
	return ""
}

// PhotoSize is one rendition of an image.
type PhotoSize struct {
	FileID string `json:"file_id"`
}

// File is the getFile result: a short-lived download path for a file handle.
type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}
