package submission

import "strings"

// Kind is the closed set of forms the relay knows how to render.
type Kind string

const (
	KindGeneric        Kind = ""
	KindContact        Kind = "contacto"
	KindFinancialStudy Kind = "estudio_financiero"
	KindValuation      Kind = "valoracion"
	KindReview         Kind = "resenas"
	KindJobApplication Kind = "trabaja-con-nosotros"
)

// ParseKind maps a formType tag to its Kind. Unknown tags are KindGeneric.
func ParseKind(formType string) Kind {
	switch k := Kind(strings.TrimSpace(formType)); k {
	case KindContact, KindFinancialStudy, KindValuation, KindReview, KindJobApplication:
		return k
	default:
		return KindGeneric
	}
}

// Row is one labelled line of the business notification.
type Row struct {
	Label string
	Value string
}

// Details is the typed field set of one kind.
type Details interface {
	Kind() Kind
	Rows() []Row
}

type Contact struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

type FinancialStudy struct {
	Name         string
	Email        string
	Phone        string
	Situation    string
	Income       string
	Savings      string
	MonthlyLoans string
	Timeline     string
}

type Valuation struct {
	Name           string
	Email          string
	Phone          string
	PropertyType   string
	Address        string
	SqmBuilt       string
	SellReason     string
	Timeline       string
	AdditionalInfo string
}

type Review struct {
	Name     string
	Email    string
	Rating   string
	Feedback string
}

// JobApplication carries the CV file name in Resume; the file itself travels
// as an attachment.
type JobApplication struct {
	Name    string
	Email   string
	Phone   string
	Message string
	Resume  string
}

// Generic is any unrecognised form. It renders no detail rows.
type Generic struct{}

func (Contact) Kind() Kind        { return KindContact }
func (FinancialStudy) Kind() Kind { return KindFinancialStudy }
func (Valuation) Kind() Kind      { return KindValuation }
func (Review) Kind() Kind         { return KindReview }
func (JobApplication) Kind() Kind { return KindJobApplication }
func (Generic) Kind() Kind        { return KindGeneric }

func (d Contact) Rows() []Row {
	return []Row{
		{"Nombre", orDash(d.Name)},
		{"Email", orDash(d.Email)},
		{"Teléfono", orDash(d.Phone)},
		{"Asunto", orDash(d.Subject)},
		{"Mensaje", orDash(d.Message)},
	}
}

func (d FinancialStudy) Rows() []Row {
	return []Row{
		{"Nombre", orDash(d.Name)},
		{"Email", orDash(d.Email)},
		{"Teléfono", orDash(d.Phone)},
		{"Situación laboral", orDash(d.Situation)},
		{"Ingresos mensuales", orDash(d.Income)},
		{"Ahorros disponibles", orDash(d.Savings)},
		{"Gastos en préstamos/mes", orDash(d.MonthlyLoans)},
		{"Plazo para comprar", orDash(d.Timeline)},
	}
}

func (d Valuation) Rows() []Row {
	return []Row{
		{"Nombre", orDash(d.Name)},
		{"Email", orDash(d.Email)},
		{"Teléfono", orDash(d.Phone)},
		{"Tipo de propiedad", orDash(d.PropertyType)},
		{"Dirección", orDash(d.Address)},
		{"Metros construidos", orDash(d.SqmBuilt)},
		{"Motivo de venta", orDash(d.SellReason)},
		{"Plazo", orDash(d.Timeline)},
		{"Info adicional", orDash(d.AdditionalInfo)},
	}
}

func (d Review) Rows() []Row {
	return []Row{
		{"Nombre", orDash(d.Name)},
		{"Email", orDash(d.Email)},
		{"Valoración", orDash(d.Rating) + " estrellas"},
		{"Comentario", orDash(d.Feedback)},
	}
}

func (d JobApplication) Rows() []Row {
	return []Row{
		{"Nombre", orDash(d.Name)},
		{"Email", orDash(d.Email)},
		{"Teléfono", orDash(d.Phone)},
		{"Mensaje", orDash(d.Message)},
		{"CV adjunto", orDash(d.Resume)},
	}
}

func (Generic) Rows() []Row { return nil }

// Details returns the typed view of the submission for its kind.
func (s *Submission) Details() Details {
	switch s.Kind {
	case KindContact:
		return Contact{
			Name:    s.Name,
			Email:   s.Email,
			Phone:   s.Field("phone"),
			Subject: s.Field("subject"),
			Message: s.Field("message"),
		}
	case KindFinancialStudy:
		return FinancialStudy{
			Name:         s.Name,
			Email:        s.Email,
			Phone:        s.Field("phone"),
			Situation:    s.Field("situation"),
			Income:       s.Field("income"),
			Savings:      s.Field("savings"),
			MonthlyLoans: s.Field("monthlyLoans"),
			Timeline:     s.Field("timeline"),
		}
	case KindValuation:
		return Valuation{
			Name:           s.Name,
			Email:          s.Email,
			Phone:          s.Field("phone"),
			PropertyType:   s.Field("propertyType"),
			Address:        s.Field("address"),
			SqmBuilt:       s.Field("sqmBuilt"),
			SellReason:     s.Field("sellReason"),
			Timeline:       s.Field("timeline"),
			AdditionalInfo: s.Field("additionalInfo"),
		}
	case KindReview:
		return Review{
			Name:     s.Name,
			Email:    s.Email,
			Rating:   s.Field("rating"),
			Feedback: s.Field("feedback"),
		}
	case KindJobApplication:
		d := JobApplication{
			Name:    s.Name,
			Email:   s.Email,
			Phone:   s.Field("phone"),
			Message: s.Field("message"),
		}
		if s.Attachment != nil {
			d.Resume = s.Attachment.Name
		}
		return d
	default:
		return Generic{}
	}
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
