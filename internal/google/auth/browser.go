package auth

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
)

func init() {
	// Keep xdg-open chatter out of the terminal during the consent flow.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("auth: launching browser: %w", err)
	}

	return nil
}
