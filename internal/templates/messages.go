package templates

import "github.com/romenn/site-worker/internal/submission"

const (
	businessSubjectPrefix  = "[Römenn Web] "
	defaultBusinessSubject = "Nuevo mensaje desde la web"
	defaultClientSubject   = "Confirmación - Römenn Inmobiliaria"
	defaultFormLabel       = "Formulario Web"
)

var formLabels = map[submission.Kind]string{
	submission.KindContact:        "Formulario de Contacto",
	submission.KindFinancialStudy: "Estudio Financiero",
	submission.KindValuation:      "Solicitud de Valoración",
	submission.KindReview:         "Feedback de Cliente",
	submission.KindJobApplication: "Trabaja con Nosotros",
}

var businessSubjects = map[submission.Kind]string{
	submission.KindContact:        "Nuevo mensaje de contacto",
	submission.KindFinancialStudy: "Nueva solicitud de estudio financiero",
	submission.KindValuation:      "Nueva solicitud de valoración",
	submission.KindReview:         "Nuevo feedback de cliente",
	submission.KindJobApplication: "Nueva candidatura",
}

var clientSubjects = map[submission.Kind]string{
	submission.KindContact:        "Hemos recibido tu mensaje - Römenn Inmobiliaria",
	submission.KindFinancialStudy: "Tu solicitud de estudio financiero - Römenn Inmobiliaria",
	submission.KindValuation:      "Tu solicitud de valoración - Römenn Inmobiliaria",
	submission.KindReview:         "Gracias por tu feedback - Römenn Inmobiliaria",
	submission.KindJobApplication: "Hemos recibido tu candidatura - Römenn Inmobiliaria",
}

type clientMessage struct {
	Title   string
	Message string
}

var clientMessages = map[submission.Kind]clientMessage{
	submission.KindContact: {
		Title:   "Hemos recibido tu mensaje",
		Message: "Gracias por contactar con Römenn Inmobiliaria. Hemos recibido tu consulta y nos pondremos en contacto contigo lo antes posible.",
	},
	submission.KindFinancialStudy: {
		Title:   "Solicitud de Estudio Financiero recibida",
		Message: "Gracias por solicitar un estudio financiero con Römenn Inmobiliaria. Nuestro equipo analizará tu situación y se pondrá en contacto contigo para ofrecerte las mejores opciones de financiación.",
	},
	submission.KindValuation: {
		Title:   "Solicitud de Valoración recibida",
		Message: "Gracias por confiar en Römenn Inmobiliaria para valorar tu propiedad. Nuestro equipo de expertos se pondrá en contacto contigo para coordinar una visita y proporcionarte una valoración profesional.",
	},
	submission.KindReview: {
		Title:   "Gracias por tu feedback",
		Message: "Agradecemos que hayas compartido tu experiencia con nosotros. Tu opinión nos ayuda a mejorar nuestros servicios.",
	},
	submission.KindJobApplication: {
		Title:   "Candidatura recibida",
		Message: "Gracias por tu interés en formar parte del equipo de Römenn Inmobiliaria. Revisaremos tu CV y nos pondremos en contacto contigo si tu perfil encaja con nuestras necesidades.",
	},
}

// BusinessSubject is the subject of the notification sent to the agency.
func BusinessSubject(k submission.Kind) string {
	if s, ok := businessSubjects[k]; ok {
		return businessSubjectPrefix + s
	}
	return businessSubjectPrefix + defaultBusinessSubject
}

// ClientSubject is the subject of the confirmation sent to the submitter.
func ClientSubject(k submission.Kind) string {
	if s, ok := clientSubjects[k]; ok {
		return s
	}
	return defaultClientSubject
}

func formLabel(k submission.Kind) string {
	if l, ok := formLabels[k]; ok {
		return l
	}
	return defaultFormLabel
}

func messageFor(k submission.Kind) clientMessage {
	if m, ok := clientMessages[k]; ok {
		return m
	}
	return clientMessages[submission.KindContact]
}
