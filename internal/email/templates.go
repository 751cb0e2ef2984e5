package email

import (
	"fmt"
	"html"
)

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────
// Letters are model output, so they are always escaped. pre-line keeps the
// paragraph breaks without converting newlines to <br>.

const quote = `"Being deeply loved by someone gives you strength, while loving someone deeply gives you courage."`

func welcomeHTML() string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #e11d48; text-align: center;">Welcome to Daily Love Letters! 💌</h1>
  <p style="font-size: 16px; line-height: 1.5;">Dear subscriber,</p>
  <p style="font-size: 16px; line-height: 1.5;">
    Thank you for subscribing to Daily Love Letters. We're thrilled to have you join everyone
    who starts the day with words of love and romantic devotion.
  </p>
  <p style="font-size: 16px; line-height: 1.5;">
    Your first love letter is already on its way! From now on you'll receive a new letter
    each morning to fill your heart with romance and warmth.
  </p>
  <p style="text-align: center; margin: 30px 0; font-style: italic; color: #666;">%s - Lao Tzu</p>
  <p style="font-size: 16px; line-height: 1.5;">
    If you have any questions or feedback, simply reply to this email.
  </p>
  <p style="font-size: 16px; line-height: 1.5;">
    With warmth and romance,<br>
    The Daily Love Letters Team
  </p>
</body>
</html>`, quote)
}

func firstLetterHTML(letter string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Georgia, serif; max-width: 600px; margin: 0 auto; padding: 30px; background: #fef7f0;">
  <div style="text-align: center; margin-bottom: 30px;">
    <h1 style="color: #be185d; font-size: 28px; margin: 0; font-weight: 300;">Your First Love Letter</h1>
    <div style="width: 50px; height: 2px; background: #f472b6; margin: 15px auto;"></div>
  </div>
  <div style="background: #ffffff; padding: 30px; border-radius: 15px; border-left: 4px solid #f472b6;">
    <div class="letter" style="font-size: 18px; line-height: 1.8; color: #4a4a4a; white-space: pre-line;">%s</div>
  </div>
  <div style="text-align: center; margin-top: 30px; color: #9ca3af; font-size: 14px;">
    <p>With love from Daily Love Letters 💌</p>
    <p style="margin-top: 15px; font-style: italic;">%s</p>
  </div>
</body>
</html>`, html.EscapeString(letter), quote)
}

func dailyLetterHTML(letter string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Georgia, serif; max-width: 500px; margin: 0 auto; padding: 40px 20px; background: #fef7f0;">
  <div style="background: #ffffff; padding: 35px; border-radius: 8px;">
    <div class="letter" style="font-size: 17px; line-height: 1.8; color: #444; white-space: pre-line;">%s</div>
  </div>
  <div style="text-align: center; margin-top: 25px; color: #999; font-size: 13px;">
    <p style="font-style: italic;">Sent with love, just for you</p>
  </div>
</body>
</html>`, html.EscapeString(letter))
}
