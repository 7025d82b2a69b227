package mail

import (
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"
)

const layout = `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
%s
    <hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
    <p style="font-size: 12px; color: #666;">This is an automated notification from %s</p>
  </div>
</body>
</html>`

// SendAccountRequestNotification tells an admin that a new account request
// is waiting for review.
func (s *Sender) SendAccountRequestNotification(ctx context.Context, adminEmail, requesterEmail string) error {
	subject := fmt.Sprintf("New Account Request - %s", s.cfg.AppName)
	body := fmt.Sprintf(`    <h2 style="color: #2c3e50;">New Account Request</h2>
    <p>A new user has requested an account:</p>
    <div style="background-color: #f4f4f4; padding: 15px; border-radius: 5px; margin: 20px 0;">
      <strong>Email:</strong> %s<br>
      <strong>Requested:</strong> %s
    </div>
    <p>Please review and approve or reject this request in the admin dashboard:</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background-color: #3498db; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Go to Admin Dashboard</a>
    </p>`,
		template.HTMLEscapeString(requesterEmail),
		time.Now().Format("2006-01-02 15:04:05"),
		s.cfg.AppURL)
	return s.send(ctx, adminEmail, subject, fmt.Sprintf(layout, body, s.cfg.AppName))
}

// SendAccountApproved delivers the temporary password to a newly approved
// user.
func (s *Sender) SendAccountApproved(ctx context.Context, userEmail, tempPassword string) error {
	subject := fmt.Sprintf("Your Account Has Been Approved - %s", s.cfg.AppName)
	body := fmt.Sprintf(`    <h2 style="color: #27ae60;">Account Approved</h2>
    <p>Your account request has been approved. You can now log in with the following credentials:</p>
    <div style="background-color: #e8f5e9; padding: 15px; border-radius: 5px; margin: 20px 0; border-left: 4px solid #27ae60;">
      <strong>Email:</strong> %s<br>
      <strong>Temporary Password:</strong> <code style="background-color: #fff; padding: 2px 6px; border-radius: 3px;">%s</code>
    </div>
    <div style="background-color: #fff3cd; padding: 15px; border-radius: 5px; margin: 20px 0; border-left: 4px solid #ffc107;">
      <strong>Important:</strong>
      <ul style="margin: 10px 0;">
        <li>This is a temporary password</li>
        <li>You will be required to change it on your first login</li>
        <li>Choose a strong password with at least 12 characters</li>
      </ul>
    </div>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background-color: #27ae60; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Log In Now</a>
    </p>`,
		template.HTMLEscapeString(userEmail),
		template.HTMLEscapeString(tempPassword),
		s.cfg.AppURL)
	return s.send(ctx, userEmail, subject, fmt.Sprintf(layout, body, s.cfg.AppName))
}

// SendAccountRejected informs a requester that their request was declined.
// The reason is optional.
func (s *Sender) SendAccountRejected(ctx context.Context, userEmail, reason string) error {
	subject := fmt.Sprintf("Account Request Update - %s", s.cfg.AppName)
	reasonHTML := ""
	if reason != "" {
		reasonHTML = fmt.Sprintf("    <p><strong>Reason:</strong> %s</p>\n", template.HTMLEscapeString(reason))
	}
	body := fmt.Sprintf(`    <h2 style="color: #e74c3c;">Account Request Update</h2>
    <p>Thank you for your interest in %s.</p>
    <p>Unfortunately, we are unable to approve your account request at this time.</p>
%s    <p>If you have questions or believe this is an error, please contact support.</p>`,
		template.HTMLEscapeString(s.cfg.AppName), reasonHTML)
	return s.send(ctx, userEmail, subject, fmt.Sprintf(layout, body, s.cfg.AppName))
}

// SendPasswordChanged confirms a password change to the account owner.
func (s *Sender) SendPasswordChanged(ctx context.Context, userEmail string) error {
	subject := fmt.Sprintf("Password Changed - %s", s.cfg.AppName)
	body := fmt.Sprintf(`    <h2 style="color: #2c3e50;">Password Changed</h2>
    <p>Your password has been successfully changed.</p>
    <div style="background-color: #e8f5e9; padding: 15px; border-radius: 5px; margin: 20px 0; border-left: 4px solid #27ae60;">
      <strong>Account:</strong> %s<br>
      <strong>Changed:</strong> %s
    </div>
    <div style="background-color: #fff3cd; padding: 15px; border-radius: 5px; margin: 20px 0; border-left: 4px solid #ffc107;">
      <strong>Security Notice:</strong><br>
      If you did not make this change, please contact support immediately.
    </div>`,
		template.HTMLEscapeString(userEmail),
		time.Now().Format("2006-01-02 15:04:05"))
	return s.send(ctx, userEmail, subject, fmt.Sprintf(layout, body, s.cfg.AppName))
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)
var blankLines = regexp.MustCompile(`\n\s*\n+`)

// stripTags produces the plain-text alternative from an HTML body.
func stripTags(html string) string {
	text := tagPattern.ReplaceAllString(html, "")
	text = blankLines.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
