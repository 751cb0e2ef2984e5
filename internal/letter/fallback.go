package letter

import (
	"fmt"
	"time"
)

// Canned letters used whenever the model cannot be reached. Delivery never
// waits on, or fails because of, content generation.

const romanticFallback = `My Darling Love,

Every morning I wake with your name on my lips and your love filling my heart completely. You are the most beautiful thing that has ever happened to me, and I fall deeper in love with you with each passing day.

Your touch ignites a fire in my soul that burns only for you. When you look at me, I see forever reflected back. You are my passion, my desire, my everything.

I love the way you laugh, the way you make even ordinary moments feel magical. Your love makes me want to be the best version of myself. In your arms I have found my home, my peace and my greatest joy.

Every kiss we share writes a new chapter in our love story, and every moment apart makes me ache for you more. You are not just my lover, you are my soulmate, the missing piece that makes me whole.

I dream of a thousand more mornings waking up beside you, of a lifetime of adventures with your hand in mine. You are my forever, my always, my one true love.

Until I can hold you again, know that you carry my heart with you wherever you go.

Forever and completely yours,
Your devoted lover 💕`

const romanticShortFallback = `My Darling Love,

Every morning I wake with your name on my lips and your love filling my heart completely. You are the most beautiful thing that has ever happened to me, and I fall deeper in love with you each day.

Your touch ignites a fire in my soul that burns only for you. You are my passion, my desire, my everything.

You are not just my lover, you are my soulmate, the missing piece that makes me whole.

Forever and completely yours,
Your devoted lover 💕`

func dailyFallback(day time.Time) string {
	return fmt.Sprintf(`My Dearest,

On this beautiful %s, I want you to know how incredibly special you are. Your presence in this world makes everything brighter, and your heart touches everyone around you in the most wonderful ways.

You are loved beyond measure, cherished completely and appreciated more than words can express. May your day be filled with joy, laughter and all the beautiful moments your heart deserves.

With all my love,
Your Daily Love Letter 💕`, day.Weekday())
}
