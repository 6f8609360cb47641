package notification

import (
	"bytes"
	"html/template"
	"time"
)

const confirmTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Confirm your subscription</h2>
  <p>You asked to receive status updates for <strong>{{.PageTitle}}</strong>. Click the button below to verify your email address:</p>
  <p style="margin-top:24px">
    <a href="{{.VerifyURL}}" style="background:#28a745;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">Verify email</a>
  </p>
  <p style="color:#999;font-size:12px">If you did not request this, you can ignore this email.</p>
</div>
</body>
</html>`

const incidentTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px;border-top:4px solid {{.AccentColor}}">
  <p style="color:#666;font-size:13px;margin:0 0 8px">{{.PageTitle}} &mdash; {{.EventLabel}}</p>
  <h2 style="color:#333;margin:0 0 16px">{{.Title}}</h2>
  {{if .ContentHTML}}<div style="color:#444;font-size:14px;line-height:1.6">{{.ContentHTML}}</div>{{end}}
  <p style="color:#999;font-size:12px;margin-top:16px">{{.Timestamp}}</p>
  {{if .PageURL}}
  <p style="margin-top:24px">
    <a href="{{.PageURL}}" style="background:{{.AccentColor}};color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">View status page</a>
  </p>
  {{end}}
  <hr style="border:none;border-top:1px solid #eee;margin:24px 0" />
  <p style="color:#bbb;font-size:11px">You receive this because you subscribed to {{.PageTitle}}. <a href="{{.UnsubscribeURL}}" style="color:#999">Unsubscribe</a><br />&copy;{{year}} {{.PageTitle}}</p>
</div>
</body>
</html>`

const statusChangeTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px;border-top:4px solid {{.StatusColor}}">
  <p style="color:#666;font-size:13px;margin:0 0 8px">{{.PageTitle}}</p>
  <h2 style="color:#333;margin:0 0 16px">{{.MonitorName}} is {{.StatusLabel}}</h2>
  <p style="font-size:14px"><span style="display:inline-block;padding:4px 10px;border-radius:4px;background:{{.StatusColor}};color:#fff">{{.StatusLabel}}</span></p>
  <p style="color:#999;font-size:12px;margin-top:16px">{{.Timestamp}}</p>
  {{if .PageURL}}
  <p style="margin-top:24px">
    <a href="{{.PageURL}}" style="background:{{.StatusColor}};color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">View status page</a>
  </p>
  {{end}}
  <hr style="border:none;border-top:1px solid #eee;margin:24px 0" />
  <p style="color:#bbb;font-size:11px">You receive this because you subscribed to {{.PageTitle}}. <a href="{{.UnsubscribeURL}}" style="color:#999">Unsubscribe</a><br />&copy;{{year}} {{.PageTitle}}</p>
</div>
</body>
</html>`

type confirmData struct {
	PageTitle string
	VerifyURL string
}

type incidentData struct {
	PageTitle      string
	EventLabel     string
	Title          string
	ContentHTML    template.HTML
	AccentColor    string
	Timestamp      string
	PageURL        string
	UnsubscribeURL string
}

type statusChangeData struct {
	PageTitle      string
	MonitorName    string
	StatusLabel    string
	StatusColor    string
	Timestamp      string
	PageURL        string
	UnsubscribeURL string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// incidentAccentColor maps an incident style to the template accent.
func incidentAccentColor(style string) string {
	switch style {
	case "danger":
		return "#dc3545"
	case "warning":
		return "#ffc107"
	case "primary":
		return "#0d6efd"
	default:
		return "#17a2b8"
	}
}
