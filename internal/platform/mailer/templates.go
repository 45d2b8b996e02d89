package mailer

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/diagnosis/sai-platform/internal/domain"
)

// Email is a rendered subject and HTML body.
type Email struct {
	Subject string
	HTML    string
}

const layout = `{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937;max-width:600px;margin:0 auto;padding:24px">
<h2 style="color:#1e3a8a">{{.Title}}</h2>
{{template "body" .Data}}
<p style="margin-top:32px;font-size:12px;color:#6b7280">SAI Platform</p>
</body></html>{{end}}`

var templates = map[string]*template.Template{
	"contact_notification": mustParse(`{{define "body"}}
<p>A new contact form submission was received.</p>
<table cellpadding="4">
<tr><td><b>Name</b></td><td>{{.FirstName}} {{.LastName}}</td></tr>
<tr><td><b>Email</b></td><td>{{.Email}}</td></tr>
<tr><td><b>Company</b></td><td>{{.Company}}</td></tr>
{{with .Phone}}<tr><td><b>Phone</b></td><td>{{.}}</td></tr>{{end}}
{{with .CompanySize}}<tr><td><b>Company size</b></td><td>{{.}}</td></tr>{{end}}
<tr><td><b>Privacy consent</b></td><td>{{if .PrivacyConsent}}yes{{else}}no{{end}}</td></tr>
</table>
<h3>Message</h3>
<p style="white-space:pre-wrap">{{.Message}}</p>
{{end}}`),
	"contact_confirmation": mustParse(`{{define "body"}}
<p>Hi {{.FirstName}},</p>
<p>Thank you for contacting SAI Platform. We received your message and will get back to you within one business day.</p>
<p style="white-space:pre-wrap;color:#4b5563">{{.Message}}</p>
{{end}}`),
	"newsletter_welcome": mustParse(`{{define "body"}}
<p>You are now subscribed to the SAI Platform newsletter with <b>{{.}}</b>.</p>
<p>Expect product updates, market insights and case studies in your inbox.</p>
{{end}}`),
	"request_notification": mustParse(`{{define "body"}}
<p>A new request was submitted: <b>{{join .RequestTypes ", "}}</b>.</p>
<table cellpadding="4">
<tr><td><b>Name</b></td><td>{{.FirstName}} {{.LastName}}</td></tr>
<tr><td><b>Email</b></td><td>{{.Email}}</td></tr>
<tr><td><b>Company</b></td><td>{{.Company}}</td></tr>
{{with .Phone}}<tr><td><b>Phone</b></td><td>{{.}}</td></tr>{{end}}
{{with .JobTitle}}<tr><td><b>Job title</b></td><td>{{.}}</td></tr>{{end}}
{{with .Industry}}<tr><td><b>Industry</b></td><td>{{.}}</td></tr>{{end}}
{{with .CompanySize}}<tr><td><b>Company size</b></td><td>{{.}}</td></tr>{{end}}
{{with .Timeline}}<tr><td><b>Timeline</b></td><td>{{.}}</td></tr>{{end}}
{{with .Budget}}<tr><td><b>Budget</b></td><td>{{.}}</td></tr>{{end}}
{{with .PreferredDate}}<tr><td><b>Preferred date</b></td><td>{{.}}</td></tr>{{end}}
</table>
{{if .Challenges}}<h3>Challenges</h3><ul>{{range .Challenges}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .FocusAreas}}<h3>Focus areas</h3><ul>{{range .FocusAreas}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{with .AdditionalRequirements}}<h3>Additional requirements</h3><p style="white-space:pre-wrap">{{.}}</p>{{end}}
{{end}}`),
	"request_confirmation": mustParse(`{{define "body"}}
<p>Hi {{.FirstName}},</p>
<p>Thank you for your interest in SAI Platform. We received your request ({{join .RequestTypes ", "}}) and our team will contact you within 24 hours.</p>
{{end}}`),
	"verification": mustParse(`{{define "body"}}
<p>Hi {{.Name}},</p>
<p>Please confirm your email address to finish setting up your SAI Platform account.</p>
<p><a href="{{.Link}}" style="background:#1e3a8a;color:#fff;padding:10px 16px;text-decoration:none;border-radius:4px">Verify email</a></p>
<p style="font-size:12px;color:#6b7280">If the button does not work, open {{.Link}}</p>
{{end}}`),
}

func mustParse(body string) *template.Template {
	t := template.New("email").Funcs(template.FuncMap{"join": strings.Join})
	template.Must(t.Parse(layout))
	return template.Must(t.Parse(body))
}

func render(name, title string, data any) (string, error) {
	var buf bytes.Buffer
	err := templates[name].ExecuteTemplate(&buf, "layout", struct {
		Title string
		Data  any
	}{title, data})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func ContactNotification(in *domain.ContactInput) (Email, error) {
	html, err := render("contact_notification", "New contact submission", in)
	return Email{Subject: "New contact form submission from " + fullName(in.FirstName, in.LastName), HTML: html}, err
}

func ContactConfirmation(in *domain.ContactInput) (Email, error) {
	html, err := render("contact_confirmation", "We received your message", in)
	return Email{Subject: "Thank you for contacting SAI Platform", HTML: html}, err
}

func NewsletterWelcome(email string) (Email, error) {
	html, err := render("newsletter_welcome", "Welcome to the SAI Platform newsletter", email)
	return Email{Subject: "Welcome to the SAI Platform newsletter", HTML: html}, err
}

func RequestNotification(in *domain.RequestInput) (Email, error) {
	html, err := render("request_notification", "New request", in)
	return Email{Subject: "New " + strings.Join(in.RequestTypes, ", ") + " request from " + in.Company, HTML: html}, err
}

func RequestConfirmation(in *domain.RequestInput) (Email, error) {
	html, err := render("request_confirmation", "We received your request", in)
	return Email{Subject: "Your SAI Platform request has been received", HTML: html}, err
}

func VerificationEmail(name, link string) (Email, error) {
	html, err := render("verification", "Verify your email", struct{ Name, Link string }{name, link})
	return Email{Subject: "Verify your SAI Platform email", HTML: html}, err
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
