// Package submission decodes and validates the form payloads posted by the
// site's lead-capture forms.
package submission

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"slices"
	"strconv"
	"strings"

	"github.com/romenn/site-worker/internal/types"
)

// MaxAttachmentBytes is the largest decoded attachment accepted.
const MaxAttachmentBytes = 5 << 20

var (
	ErrInvalidJSON       = errors.New("invalid JSON body")
	ErrMissingFields     = errors.New("missing required fields: formType, email")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidAttachment = errors.New("invalid attachment")
)

var allowedAttachmentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Submission is one form post. It lives only for the duration of a request.
type Submission struct {
	FormType   string
	Kind       Kind
	Name       string
	Email      string
	Fields     map[string]string
	Attachment *types.Attachment
}

// Decode reads a JSON object. Scalar values are kept as strings; numbers keep
// their literal form so a rating of 5 stays "5".
func Decode(r io.Reader) (*Submission, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	raw := map[string]any{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	s := &Submission{Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		if k == "attachment" {
			a, err := decodeAttachment(v)
			if err != nil {
				return nil, err
			}
			s.Attachment = a
			continue
		}
		if str, ok := scalarString(v); ok {
			s.Fields[k] = str
		}
	}

	s.FormType = s.Fields["formType"]
	s.Kind = ParseKind(s.FormType)
	s.Name = strings.TrimSpace(s.Fields["name"])
	s.Email = strings.TrimSpace(s.Fields["email"])

	return s, nil
}

// Validate checks the required fields and the attachment, if any. The email
// must be a bare address; display names, comments and line breaks are
// rejected since the value ends up in outbound mail headers.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.FormType) == "" || s.Email == "" {
		return ErrMissingFields
	}

	if !IsBareAddress(s.Email) {
		return ErrInvalidEmail
	}

	if s.Attachment != nil {
		if err := validateAttachment(s.Attachment); err != nil {
			return err
		}
	}

	return nil
}

// IsBareAddress reports whether email parses as a single RFC 5322 address
// and is exactly that address.
func IsBareAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// Field returns a trimmed field value, or "" when absent.
func (s *Submission) Field(key string) string {
	return strings.TrimSpace(s.Fields[key])
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func decodeAttachment(v any) (*types.Attachment, error) {
	if v == nil {
		return nil, nil
	}

	// round-trip through json to reuse the struct tags
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAttachment, err)
	}

	a := &types.Attachment{}
	if err := json.Unmarshal(bs, a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAttachment, err)
	}

	return a, nil
}

func validateAttachment(a *types.Attachment) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAttachment)
	}

	if !slices.Contains(allowedAttachmentTypes, a.ContentType) {
		return fmt.Errorf("%w: type %q not allowed (PDF or Word only)", ErrInvalidAttachment, a.ContentType)
	}

	decoded, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return fmt.Errorf("%w: content is not base64", ErrInvalidAttachment)
	}
	if len(decoded) == 0 {
		return fmt.Errorf("%w: content is empty", ErrInvalidAttachment)
	}
	if len(decoded) > MaxAttachmentBytes {
		return fmt.Errorf("%w: file exceeds 5MB", ErrInvalidAttachment)
	}

	return nil
}
