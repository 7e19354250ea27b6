package submission

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/romenn/site-worker/internal/types"
)

func TestDecode(t *testing.T) {
	body := `{"formType":"resenas","name":" Ana ","email":"a@b.com","rating":5,"consent":true,"extra":{"x":1}}`

	s, err := Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Kind != KindReview {
		t.Errorf("expected kind resenas, got %q", s.Kind)
	}
	if s.Name != "Ana" {
		t.Errorf("expected trimmed name, got %q", s.Name)
	}
	if s.Field("rating") != "5" {
		t.Errorf("expected rating '5', got %q", s.Field("rating"))
	}
	if s.Field("consent") != "true" {
		t.Errorf("expected consent 'true', got %q", s.Field("consent"))
	}
	if _, ok := s.Fields["extra"]; ok {
		t.Error("expected nested objects to be dropped")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("expected valid submission, got %v", err)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	for _, body := range []string{"", "{", "[1,2]", `"text"`} {
		_, err := Decode(strings.NewReader(body))
		if !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("body %q: expected ErrInvalidJSON, got %v", body, err)
		}
	}
}

func TestValidate_MissingFields(t *testing.T) {
	testCases := []string{
		`{}`,
		`{"formType":"contacto"}`,
		`{"email":"a@b.com"}`,
		`{"formType":"","email":"a@b.com"}`,
		`{"formType":"contacto","email":"  "}`,
		`null`,
	}

	for _, body := range testCases {
		t.Run(body, func(t *testing.T) {
			s, err := Decode(strings.NewReader(body))
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if err := s.Validate(); !errors.Is(err, ErrMissingFields) {
				t.Errorf("expected ErrMissingFields, got %v", err)
			}
		})
	}
}

func TestValidate_Email(t *testing.T) {
	testCases := []struct {
		email string
		valid bool
	}{
		{"ana.garcia@example.com", true},
		{"user+tag@sub.example.es", true},
		{"a@b.com\r\nBcc: victim@evil.com\r\nX-Injected: yes", false},
		{"a@b.com\nBcc: victim@evil.com", false},
		{"Ana <a@b.com>", false},
		{"a@b.com (Ana)", false},
		{"a@b.com, c@d.com", false},
		{"notanemail", false},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"formType": "contacto", "email": tc.email})
			s, err := Decode(bytes.NewReader(body))
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}

			err = s.Validate()
			if tc.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidEmail) {
				t.Errorf("expected ErrInvalidEmail, got %v", err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	testCases := map[string]Kind{
		"contacto":             KindContact,
		"estudio_financiero":   KindFinancialStudy,
		"valoracion":           KindValuation,
		"resenas":              KindReview,
		"trabaja-con-nosotros": KindJobApplication,
		" contacto ":           KindContact,
		"newsletter":           KindGeneric,
		"":                     KindGeneric,
	}

	for in, want := range testCases {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetails_Rows(t *testing.T) {
	s := &Submission{
		Kind:   KindContact,
		Name:   "Ana",
		Email:  "a@b.com",
		Fields: map[string]string{"message": "hola"},
	}

	rows := s.Details().Rows()
	want := []Row{
		{"Nombre", "Ana"},
		{"Email", "a@b.com"},
		{"Teléfono", "-"},
		{"Asunto", "-"},
		{"Mensaje", "hola"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestDetails_ReviewRating(t *testing.T) {
	s := &Submission{Kind: KindReview, Fields: map[string]string{"rating": "5"}}
	rows := s.Details().Rows()
	if rows[2].Value != "5 estrellas" {
		t.Errorf("expected '5 estrellas', got %q", rows[2].Value)
	}

	s.Fields = map[string]string{}
	rows = s.Details().Rows()
	if rows[2].Value != "- estrellas" {
		t.Errorf("expected '- estrellas' when missing, got %q", rows[2].Value)
	}
}

func TestDetails_GenericHasNoRows(t *testing.T) {
	s := &Submission{Kind: KindGeneric, Fields: map[string]string{"foo": "bar"}}
	d := s.Details()
	if d.Kind() != KindGeneric {
		t.Errorf("expected generic kind, got %q", d.Kind())
	}
	if len(d.Rows()) != 0 {
		t.Errorf("expected no rows, got %d", len(d.Rows()))
	}
}

func TestDetails_EveryKindHasNameAndEmailFirst(t *testing.T) {
	for _, k := range []Kind{KindContact, KindFinancialStudy, KindValuation, KindReview, KindJobApplication} {
		s := &Submission{Kind: k, Name: "Ana", Email: "a@b.com", Fields: map[string]string{}}
		d := s.Details()
		if d.Kind() != k {
			t.Errorf("%s: details kind mismatch %q", k, d.Kind())
		}
		rows := d.Rows()
		if rows[0].Label != "Nombre" || rows[1].Label != "Email" {
			t.Errorf("%s: expected Nombre/Email first, got %+v", k, rows[:2])
		}
	}
}

func TestAttachment(t *testing.T) {
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))

	testCases := []struct {
		name    string
		a       *types.Attachment
		wantErr bool
	}{
		{"valid pdf", &types.Attachment{Name: "cv.pdf", Content: pdf, ContentType: "application/pdf"}, false},
		{"missing name", &types.Attachment{Content: pdf, ContentType: "application/pdf"}, true},
		{"image type", &types.Attachment{Name: "cv.png", Content: pdf, ContentType: "image/png"}, true},
		{"not base64", &types.Attachment{Name: "cv.pdf", Content: "***", ContentType: "application/pdf"}, true},
		{"empty content", &types.Attachment{Name: "cv.pdf", Content: "", ContentType: "application/pdf"}, true},
		{
			"too large",
			&types.Attachment{
				Name:        "cv.pdf",
				Content:     base64.StdEncoding.EncodeToString(make([]byte, MaxAttachmentBytes+1)),
				ContentType: "application/pdf",
			},
			true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Submission{FormType: "trabaja-con-nosotros", Email: "a@b.com", Attachment: tc.a}
			err := s.Validate()
			if tc.wantErr && !errors.Is(err, ErrInvalidAttachment) {
				t.Errorf("expected ErrInvalidAttachment, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecode_Attachment(t *testing.T) {
	body := `{"formType":"trabaja-con-nosotros","email":"a@b.com","attachment":{"name":"cv.pdf","content":"JVBERg==","type":"application/pdf"}}`

	s, err := Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Attachment == nil || s.Attachment.Name != "cv.pdf" {
		t.Fatalf("expected attachment cv.pdf, got %+v", s.Attachment)
	}
	if d := s.Details().(JobApplication); d.Resume != "cv.pdf" {
		t.Errorf("expected resume name in details, got %q", d.Resume)
	}

	_, err = Decode(strings.NewReader(`{"attachment":"nope"}`))
	if !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("expected ErrInvalidAttachment for non-object attachment, got %v", err)
	}
}
