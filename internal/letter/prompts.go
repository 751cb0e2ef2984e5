package letter

import (
	"fmt"
	"time"
)

const dailySystemPrompt = `You are a romantic poet who writes beautiful, heartfelt love letters.
Your writing is warm, personal and emotionally moving, and you make each reader feel truly special and loved.
Always write in an intimate tone, as if to someone you deeply care about.`

const romanticSystemPrompt = `You write deeply romantic, passionate love letters between lovers. Your letters:
- are intensely romantic and tender
- use beautiful, poetic language that stirs the heart
- speak of devotion, longing and romantic connection
- read as if written by a devoted lover, addressing the reader as "my love", "darling" or "my heart"
- are around %s
- end with a declaration of love`

// dailyPrompts are the date-stamped prompts for the letter of the day. The
// order is part of the contract: PromptIndex picks from it by date.
var dailyPrompts = []string{
	// heartfelt
	`Write a heartfelt, romantic love letter for %s. Make it personal, warm and encouraging. Include beautiful metaphors about love, gratitude for the reader's existence and hopes for their day. It should feel written by someone who truly cares about the reader. Keep it between 150 and 200 words, unique and authentic rather than generic.`,
	// uplifting
	`Compose an uplifting love letter for %s that celebrates the reader's uniqueness and beauty. Use poetic language about how they light up the world, their inner strength and how much they are cherished. Make it personal and inspiring for the day ahead, 150 to 200 words with genuine emotion.`,
	// tender
	`Create a tender, loving message for %s that reminds the reader of their worth and the joy they bring to others. Mix gentle, comforting words with passionate expressions of love and wish them happiness and success today. Write it as a devoted partner who adores them completely, 150 to 200 words.`,
	// passionate yet gentle
	`Write a passionate yet gentle love letter for %s about the reader's inner and outer beauty. Use metaphors of nature, light and warmth. Express deep gratitude for their presence and excitement for everything they will accomplish today, 150 to 200 words with authentic emotion.`,
	// warm embrace
	`Compose a romantic letter for %s that feels like a warm embrace in words. Write about the reader's impact on the world, their precious heart and how thinking of them brings pure joy. Include vivid imagery and heartfelt promises of love and support, 150 to 200 words.`,
}

var (
	emailPrompts = []string{
		`Write a deeply romantic, passionate love letter that will make someone feel cherished by their lover. Make it intimate, heartfelt and full of devotion.`,
	}
	whatsAppPrompts = []string{
		`Write a deeply romantic, passionate love letter that will make someone feel cherished by their lover. Keep it concise but intensely romantic, for delivery as a WhatsApp message.`,
	}
)

// variantProfile is everything needed to ask a model for one kind of letter.
type variantProfile struct {
	system      string
	prompts     []string
	datedPrompt bool // prompts take the human date as their only argument
	temperature float64
	maxTokens   int
	fallback    func(day time.Time) string
}

var variants = map[Variant]variantProfile{
	VariantDaily: {
		system:      dailySystemPrompt,
		prompts:     dailyPrompts,
		datedPrompt: true,
		temperature: 0.8,
		maxTokens:   300,
		fallback:    dailyFallback,
	},
	VariantEmail: {
		system:      fmt.Sprintf(romanticSystemPrompt, "250-350 words"),
		prompts:     emailPrompts,
		temperature: 0.9,
		maxTokens:   600,
		fallback:    func(time.Time) string { return romanticFallback },
	},
	VariantWhatsApp: {
		system:      fmt.Sprintf(romanticSystemPrompt, "200-300 words, shorter for WhatsApp"),
		prompts:     whatsAppPrompts,
		temperature: 0.9,
		maxTokens:   400,
		fallback:    func(time.Time) string { return romanticShortFallback },
	},
}
