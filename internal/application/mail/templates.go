package mail

import (
	"html"
	"regexp"
	"sort"
	"strings"
)

// Template names
const (
	TemplateWelcome           = "welcome"
	TemplatePasswordReset     = "password_reset"
	TemplateQuoteReceived     = "quote_received"
	TemplateQuoteStatus       = "quote_status"
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderStatus       = "order_status"
	TemplateCODConfirmation   = "cod_confirmation"
	TemplateAlert             = "alert"
)

// Template is a named subject and body with {{key}} placeholders.
// Values are HTML-escaped unless the key ends in _html.
type Template struct {
	Name    string
	Subject string
	Body    string
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Substitute replaces {{key}} placeholders with vars. Unknown keys become empty.
func Substitute(s string, vars map[string]string, escape bool) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		v := vars[key]
		if escape && !strings.HasSuffix(key, "_html") {
			return html.EscapeString(v)
		}
		return v
	})
}

// Render returns the subject and the body wrapped in the base layout
func (t Template) Render(vars map[string]string) (subject, body string) {
	subject = Substitute(t.Subject, vars, false)
	content := Substitute(t.Body, vars, true)

	layoutVars := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		layoutVars[k] = v
	}
	layoutVars["content_html"] = content
	layoutVars["subject"] = subject
	return subject, Substitute(baseLayout, layoutVars, true)
}

const baseLayout = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>{{subject}}</title></head>
<body style="margin:0;padding:0;background:#f4f5f7;font-family:Arial,Helvetica,sans-serif;color:#1f2933">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding:24px">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px">
<tr><td style="background:#0b3d91;color:#ffffff;padding:20px 24px;font-size:20px;font-weight:bold">{{company_name}}</td></tr>
<tr><td style="padding:24px;font-size:15px;line-height:1.5">{{content_html}}</td></tr>
<tr><td style="padding:16px 24px;font-size:12px;color:#7b8794;border-top:1px solid #e4e7eb">
{{company_name}} &middot; {{company_phone}}<br>
<a href="{{frontend_url}}" style="color:#0b3d91">{{frontend_url}}</a>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`

var templates = map[string]Template{
	TemplateWelcome: {
		Name:    TemplateWelcome,
		Subject: "Bienvenido a {{company_name}}",
		Body: `<p>Hola {{name}},</p>
<p>Tu cuenta fue creada correctamente. Ya puedes solicitar cotizaciones y realizar pedidos.</p>
<p><a href="{{frontend_url}}">Ir a la tienda</a></p>`,
	},
	TemplatePasswordReset: {
		Name:    TemplatePasswordReset,
		Subject: "Restablece tu contraseña",
		Body: `<p>Hola {{name}},</p>
<p>Recibimos una solicitud para restablecer tu contraseña.</p>
<p><a href="{{reset_url}}">Crear una nueva contraseña</a></p>
<p>Si no fuiste tú, ignora este mensaje.</p>`,
	},
	TemplateQuoteReceived: {
		Name:    TemplateQuoteReceived,
		Subject: "Recibimos tu cotización {{code}}",
		Body: `<p>Hola {{name}},</p>
<p>Registramos tu solicitud de cotización <strong>{{code}}</strong> para <strong>{{service_type}}</strong>.</p>
<p>Te contactaremos pronto. Puedes seguir su avance en <a href="{{tracking_url}}">{{tracking_url}}</a>.</p>`,
	},
	TemplateQuoteStatus: {
		Name:    TemplateQuoteStatus,
		Subject: "Cotización {{code}}: {{status_label}}",
		Body: `<p>Hola {{name}},</p>
<p>Tu cotización <strong>{{code}}</strong> ahora está en <strong>{{status_label}}</strong> ({{progress}}%).</p>
<p>{{comment}}</p>
<p><a href="{{tracking_url}}">Ver el detalle</a></p>`,
	},
	TemplateOrderConfirmation: {
		Name:    TemplateOrderConfirmation,
		Subject: "Pedido {{code}} confirmado",
		Body: `<p>Hola {{name}},</p>
<p>Recibimos el pago de tu pedido <strong>{{code}}</strong>.</p>
{{items_html}}
<p>Total: <strong>{{total}}</strong></p>
<p>Comprobante: {{receipt_number}}</p>
<p><a href="{{tracking_url}}">Ver mi pedido</a></p>`,
	},
	TemplateOrderStatus: {
		Name:    TemplateOrderStatus,
		Subject: "Pedido {{code}}: {{status_label}}",
		Body: `<p>Hola {{name}},</p>
<p>Tu pedido <strong>{{code}}</strong> ahora está <strong>{{status_label}}</strong>.</p>
<p>{{comment}}</p>
<p><a href="{{tracking_url}}">Ver mi pedido</a></p>`,
	},
	TemplateCODConfirmation: {
		Name:    TemplateCODConfirmation,
		Subject: "Pedido {{code}} registrado: pago contra entrega",
		Body: `<p>Hola {{name}},</p>
<p>Registramos tu pedido <strong>{{code}}</strong> con pago contra entrega.</p>
{{items_html}}
<p>Total a pagar al recibir: <strong>{{total}}</strong></p>
<p>Dirección de entrega: {{address}}</p>`,
	},
	TemplateAlert: {
		Name:    TemplateAlert,
		Subject: "[Alerta] {{failed}} correos fallidos en {{window}}",
		Body: `<p>Se registraron <strong>{{failed}}</strong> envíos fallidos en los últimos {{window}}.</p>
<p>Último error: {{last_error}}</p>
<p>Revisa el registro de correos en el panel de administración.</p>`,
	},
}

// LookupTemplate returns a named template
func LookupTemplate(name string) (Template, bool) {
	t, ok := templates[name]
	return t, ok
}

// TemplateNames returns the registered template names, sorted
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
