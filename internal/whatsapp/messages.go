package whatsapp

const welcomeMessage = `🌹 Welcome to Daily Love Letters! 💌

Thank you for subscribing! We're thrilled to have you join everyone who starts the day with words of love and affirmation.

Your first love letter is coming right after this message. Each morning we'll send you words that warm your heart and remind you that you are cherished.

"Love recognizes no barriers. It jumps hurdles, leaps fences, penetrates walls to arrive at its destination full of hope." - Maya Angelou

If you have any questions, just reply to this message.

With warmth and gratitude,
The Daily Love Letters Team 💕`

func firstLetterMessage(letter string) string {
	return "💕 Your First Love Letter 💕\n\n" + letter + "\n\n---\nDaily Love Letters 💌"
}

func dailyLetterMessage(letter string) string {
	return "💌 Today's Love Letter\n\n" + letter + "\n\n---\nSent with love, just for you"
}
