// Command vapidkeys prints a fresh VAPID key pair as environment lines ready
// to paste into .env.
package main

import (
	"fmt"
	"os"

	"github.com/nyashahama/love-letters-backend/internal/push"
)

func main() {
	keys, err := push.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintln(os.Stderr, "vapidkeys:", err)
		os.Exit(1)
	}
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", keys.PublicKey)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", keys.PrivateKey)
}
