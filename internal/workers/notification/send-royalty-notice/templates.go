// internal/workers/notification/send-royalty-notice/templates.go
package sendroyaltynotice

import "regexp"

type noticeTemplate struct {
	Subject string
	Body    string
	SMS     string
}

// Notices go out in Spanish; the franchise network operates in Puerto Rico.
var noticeTemplates = map[string]noticeTemplate{
	"calculation_ready": {
		Subject: "Cálculo de regalías disponible - {{period}}",
		Body: "Estimado franquiciado de {{franchiseName}}:\n\n" +
			"El cálculo de regalías del período {{period}} ya está disponible.\n" +
			"Total de cargos: ${{totalFees}}\n" +
			"Fecha límite de pago: {{dueDate}}\n\n" +
			"Puede revisar el detalle en el portal de franquicias.",
		SMS: "PRMCMS: cálculo de regalías de {{period}} disponible. Total: ${{totalFees}}. Vence: {{dueDate}}.",
	},
	"payment_due": {
		Subject: "Recordatorio de pago - vence {{dueDate}}",
		Body: "Estimado franquiciado de {{franchiseName}}:\n\n" +
			"Le recordamos que el pago de ${{amount}} correspondiente al período " +
			"{{period}} vence el {{dueDate}}.\n\n" +
			"Gracias por mantener su cuenta al día.",
		SMS: "PRMCMS: pago de ${{amount}} vence el {{dueDate}}.",
	},
	"payment_overdue": {
		Subject: "Pago vencido - período {{period}}",
		Body: "Estimado franquiciado de {{franchiseName}}:\n\n" +
			"El pago de ${{amount}} del período {{period}} venció el {{dueDate}} " +
			"y aún no ha sido recibido. Por favor efectúe el pago a la brevedad " +
			"para evitar recargos.",
		SMS: "PRMCMS: pago de ${{amount}} VENCIDO desde {{dueDate}}. Favor pagar a la brevedad.",
	},
	"dispute_update": {
		Subject: "Actualización de disputa {{disputeId}}",
		Body: "Estimado franquiciado de {{franchiseName}}:\n\n" +
			"Su disputa {{disputeId}} cambió a estado: {{disputeStatus}}.\n" +
			"{{resolution}}\n\n" +
			"Para más detalles visite el portal de franquicias.",
		SMS: "PRMCMS: disputa {{disputeId}} ahora en estado {{disputeStatus}}.",
	},
}

var placeholderPattern = regexp.MustCompile(`\{\{[a-zA-Z0-9_]+\}\}`)

// renderTemplate substitutes {{key}} placeholders and strips any the
// caller did not provide a value for.
func renderTemplate(tmpl string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := data[key]; ok {
			return v
		}
		return ""
	})
}
