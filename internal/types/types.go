package types

// EmailData is one outbound HTML email, independent of the provider that
// delivers it.
type EmailData struct {
	SenderName         string       `json:"senderName"`
	SourceAddress      string       `json:"srcAddress"`
	DestinationName    string       `json:"dstName,omitempty"`
	DestinationAddress string       `json:"dstAddress"`
	ReplyToAddress     string       `json:"replyTo,omitempty"`
	Subject            string       `json:"subject"`
	HTMLContent        string       `json:"htmlContent"`
	Attachments        []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file forwarded with an email. Content is base64 encoded.
type Attachment struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	ContentType string `json:"type"`
}
