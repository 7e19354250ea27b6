package verifier

import (
	"context"
	"net/mail"
	"slices"
	"strings"
)

// mailbox names that reach a team rather than a person
var roleLocalParts = []string{
	"admin", "administracion", "contacto", "hello", "hola", "info",
	"noreply", "no-reply", "postmaster", "sales", "soporte", "support", "ventas",
}

// OfflineEmailVerifier performs basic email address validation without
// external API calls. It validates the email format using RFC 5322 parsing.
type OfflineEmailVerifier struct {
	Whitelist Whitelist
}

func (v *OfflineEmailVerifier) VerifyEmail(ctx context.Context, email string) (*EmailVerificationResult, error) {
	if r := v.Whitelist.Match(email); r != nil {
		return r, nil
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid(`{"error":"invalid email format"}`), nil
	}

	// Ensure there's a domain part with at least one dot
	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 || at == len(addr.Address)-1 {
		return invalid(`{"error":"missing domain"}`), nil
	}

	domain := addr.Address[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return invalid(`{"error":"invalid domain"}`), nil
	}

	local := strings.ToLower(addr.Address[:at])

	return &EmailVerificationResult{
		Score:       100.0,
		IsValid:     true,
		IsRoleBased: slices.Contains(roleLocalParts, local),
		Raw:         `{}`,
	}, nil
}

func invalid(raw string) *EmailVerificationResult {
	return &EmailVerificationResult{Score: 0, IsValid: false, Raw: raw}
}

func NewOfflineVerifier(whitelist ...string) *OfflineEmailVerifier {
	return &OfflineEmailVerifier{Whitelist: whitelist}
}
