// Package templates provides email template layout
package templates

import (
	"html/template"
)

type EmailLayoutProps struct {
	Preheader  string
	Title      string
	Content    string // pre-rendered, trusted HTML
	FooterText string
	Accent     string // hex colour for the title bar
}

type emailTemplateData struct {
	Preheader  string
	Title      string
	Content    template.HTML
	FooterText string
	Accent     string
}

var layoutTemplate = template.Must(template.New("emailLayout").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>{{.Title}}</title>
  </head>
  <body style="background-color: #f4f5f6; margin: 0; padding: 0;">
    <span style="color: transparent; display: none; height: 0; max-height: 0; max-width: 0; opacity: 0; overflow: hidden; visibility: hidden; width: 0;">{{.Preheader}}</span>
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="100%" style="background-color: #f4f5f6;">
      <tr>
        <td align="center" style="padding: 24px;">
          <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="600" style="max-width: 600px; background: #ffffff; border: 1px solid #eaebed; border-radius: 16px;">
            <tr>
              <td style="border-top: 6px solid {{.Accent}}; border-radius: 16px 16px 0 0; padding: 24px 24px 0 24px; font-family: Helvetica, sans-serif; font-size: 20px; font-weight: bold; color: #1f2328;">{{.Title}}</td>
            </tr>
            <tr>
              <td style="padding: 16px 24px 24px 24px;">{{.Content}}</td>
            </tr>
          </table>
          <p style="font-family: Helvetica, sans-serif; font-size: 12px; color: #9a9ea6; margin-top: 16px;">{{.FooterText}}</p>
        </td>
      </tr>
    </table>
  </body>
</html>`))

// GetEmailLayout wraps content in the alert layout.
func GetEmailLayout(props EmailLayoutProps) string {
	data := emailTemplateData{
		Preheader:  props.Preheader,
		Title:      props.Title,
		Content:    template.HTML(props.Content),
		FooterText: props.FooterText,
		Accent:     props.Accent,
	}
	if data.FooterText == "" {
		data.FooterText = "folio-go content service"
	}
	if data.Accent == "" {
		data.Accent = "#0867ec"
	}
	return render(layoutTemplate, data)
}
