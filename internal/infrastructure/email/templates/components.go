// Package templates provides email template components
package templates

import (
	"bytes"
	"html/template"
	"log"
	"net/url"
)

// DetailRow is one label/value line in an alert's detail table.
type DetailRow struct {
	Label string
	Value string
}

type ButtonProps struct {
	Text string
	URL  string
}

var (
	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(
		`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.}}</p>`))

	detailsTemplate = template.Must(template.New("emailDetails").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: collapse; width: 100%; margin-bottom: 16px;" width="100%">
      <tbody>{{range .}}
        <tr>
          <td style="font-family: Helvetica, sans-serif; font-size: 14px; color: #6e7681; padding: 4px 12px 4px 0; vertical-align: top; white-space: nowrap;">{{.Label}}</td>
          <td style="font-family: monospace; font-size: 14px; color: #1f2328; padding: 4px 0; word-break: break-all;">{{.Value}}</td>
        </tr>{{end}}
      </tbody>
    </table>`))

	buttonTemplate = template.Must(template.New("emailButton").Parse(
		`<a href="{{.URL}}" target="_blank" style="display: inline-block; border-radius: 4px; padding: 12px 24px; font-family: Helvetica, sans-serif; font-size: 16px; font-weight: bold; text-decoration: none; background-color: #0867ec; color: #ffffff;">{{.Text}}</a>`))
)

// GetParagraph renders escaped paragraph text
func GetParagraph(text string) string {
	return render(paragraphTemplate, text)
}

// GetDetails renders a label/value table
func GetDetails(rows []DetailRow) string {
	if len(rows) == 0 {
		return ""
	}
	return render(detailsTemplate, rows)
}

// GetButton renders a link button. Non-http(s) URLs render nothing.
func GetButton(props ButtonProps) string {
	u, err := url.Parse(props.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		if props.URL != "" {
			log.Printf("Invalid or unsafe URL in email button: %s", props.URL)
		}
		return ""
	}
	return render(buttonTemplate, ButtonProps{Text: props.Text, URL: u.String()})
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.Printf("Error executing email template %s: %v", t.Name(), err)
		return ""
	}
	return buf.String()
}
