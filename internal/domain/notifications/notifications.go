package notifications

import (
	"context"
	"fmt"
)

// Mailer delivers plain-text mail. The SMTP implementation lives in
// platform/email; a no-op stands in when mail is disabled.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// ResetMessage builds the password-reset mail pointing at the webapp's
// reset page.
func ResetMessage(webappURL, token string) (subject, body string) {
	subject = "Restablecer contraseña"
	body = fmt.Sprintf(
		"Hemos recibido una solicitud para restablecer tu contraseña.\n\n"+
			"Abre este enlace para elegir una nueva (caduca en 1 hora):\n\n"+
			"%s/reset-password?token=%s\n\n"+
			"Si no has solicitado el cambio, ignora este mensaje.\n",
		webappURL, token)
	return subject, body
}

// WelcomeMessage greets a newly registered worker.
func WelcomeMessage(webappURL, fullName string) (subject, body string) {
	subject = "Bienvenido a Jornada"
	body = fmt.Sprintf(
		"Hola %s,\n\n"+
			"Tu cuenta de registro horario ya está activa. Puedes fichar en:\n\n"+
			"%s\n",
		fullName, webappURL)
	return subject, body
}
