package utils

import "fmt"

const emailShell = `
<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"></head>
<body style="margin: 0; padding: 0; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f5;">
  <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
    <tr>
      <td style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 32px; text-align: center; border-radius: 12px 12px 0 0;">
        <h1 style="margin: 0; color: #ffffff; font-size: 26px;">📚 Librairie</h1>
      </td>
    </tr>
    <tr>
      <td style="padding: 32px;">%s</td>
    </tr>
    <tr>
      <td style="padding: 16px 32px; color: #999; font-size: 12px; text-align: center;">
        Cet e-mail a été envoyé automatiquement, merci de ne pas y répondre.
      </td>
    </tr>
  </table>
</body>
</html>`

// OrderStatusEmail rend la notification de changement de statut de commande.
func OrderStatusEmail(username, orderID, status, trackingID string) (subject, html string) {
	subject = orderStatusSubject(status)

	body := fmt.Sprintf(`
      <p>Bonjour %s,</p>
      <p>Le statut de votre commande <strong>%s</strong> est maintenant : <strong>%s</strong>.</p>`,
		username, orderID, status)
	if trackingID != "" {
		body += fmt.Sprintf(`<p>Numéro de suivi : <strong>%s</strong></p>`, trackingID)
	}

	return subject, fmt.Sprintf(emailShell, body)
}

func orderStatusSubject(status string) string {
	switch status {
	case "complete":
		return "✅ Paiement confirmé - Librairie"
	case "expired":
		return "⏰ Votre commande a expiré - Librairie"
	case "canceled":
		return "❌ Commande annulée - Librairie"
	case "refunded":
		return "💰 Remboursement effectué - Librairie"
	case "delivered":
		return "🎉 Votre commande a été livrée - Librairie"
	default:
		return "📋 Mise à jour de votre commande - Librairie"
	}
}

// RefundStatusEmail rend la notification de suivi de remboursement.
func RefundStatusEmail(username, orderID string) (subject, html string) {
	subject = "💰 Mise à jour de votre remboursement - Librairie"
	body := fmt.Sprintf(`
      <p>Bonjour %s,</p>
      <p>Le remboursement de votre commande <strong>%s</strong> a été mis à jour.
      Consultez votre espace client pour le détail.</p>`, username, orderID)
	return subject, fmt.Sprintf(emailShell, body)
}

// PasswordResetEmail rend l'e-mail de réinitialisation de mot de passe.
func PasswordResetEmail(username, link string) (subject, html string) {
	subject = "🔑 Réinitialisation de votre mot de passe - Librairie"
	body := fmt.Sprintf(`
      <p>Bonjour %s,</p>
      <p>Cliquez sur le lien suivant pour réinitialiser votre mot de passe :</p>
      <p><a href="%s">%s</a></p>
      <p>Ce lien expire dans 30 minutes.</p>`, username, link, link)
	return subject, fmt.Sprintf(emailShell, body)
}
