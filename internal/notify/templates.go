package notify

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/eventcrm/apiserver/types"
)

const (
	welcomeSubject = "Welcome to Event Management CRM"
	resetSubject   = "Password Reset Request - Event Management CRM"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #f97316;">Welcome to Event Management CRM!</h2>
  <p>Hello {{.FirstName}},</p>
  <p>Welcome to our Event Management CRM system! Your account has been successfully created as a <strong>{{.Role}}</strong>.</p>
  <p>You can now access all the features available for your role:</p>
  <ul>
    <li>Dashboard overview</li>
    <li>Event management</li>
    <li>Client/Supplier management</li>
    <li>Ticket system</li>
    <li>And much more!</li>
  </ul>
  <p>If you have any questions, please don't hesitate to contact our support team.</p>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
  <p style="color: #666; font-size: 12px;">Event Management CRM Team</p>
</div>`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #f97316;">Password Reset Request</h2>
  <p>Hello {{.FirstName}},</p>
  <p>You have requested to reset your password for your Event Management CRM account.</p>
  <p>Click the button below to reset your password:</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.ResetURL}}"
       style="background-color: #f97316; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">
      Reset Password
    </a>
  </div>
  <p>This link will expire in 10 minutes for security reasons.</p>
  <p>If you didn't request this password reset, please ignore this email.</p>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
  <p style="color: #666; font-size: 12px;">Event Management CRM Team</p>
</div>`))

func renderWelcome(firstName string, role types.Role) (subject, body string, err error) {
	var sb strings.Builder
	err = welcomeTmpl.Execute(&sb, struct {
		FirstName string
		Role      types.Role
	}{firstName, role})
	if err != nil {
		return "", "", err
	}
	return welcomeSubject, sb.String(), nil
}

func renderPasswordReset(firstName, link string) (subject, body string, err error) {
	var sb strings.Builder
	err = resetTmpl.Execute(&sb, struct {
		FirstName string
		ResetURL  template.URL
	}{firstName, template.URL(link)})
	if err != nil {
		return "", "", err
	}
	return resetSubject, sb.String(), nil
}

func resetURL(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}
