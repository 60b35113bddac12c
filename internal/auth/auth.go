// Package auth resolves and validates the Gemini API key for a session.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".ai-video-studio"
	credentialFile = "api_key"
)

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable (a .env file loaded at startup
//     lands here too)
//  2. Plain key file at ~/.ai-video-studio/api_key (must be owner-only)
func GetAPIKey() (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	key, err := getFromKeyFile()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from key file")
		return key, nil
	}

	log.Error().Err(err).Msg("Failed to retrieve API key")
	return "", fmt.Errorf("API key not found. Set GEMINI_API_KEY or write it to ~/%s/%s", credentialDir, credentialFile)
}

// getFromKeyFile reads the API key from the user's key file. The file must
// not be readable by group or others.
func getFromKeyFile() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(credPath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("key file not found at %s", credPath)
	}
	if err != nil {
		return "", err
	}

	if mode := fi.Mode().Perm(); mode&0o077 != 0 {
		return "", fmt.Errorf("key file %s has insecure permissions %04o (should be 0600)", credPath, mode)
	}

	data, err := os.ReadFile(credPath)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s is empty", credPath)
	}
	return key, nil
}

// getCredentialPath returns the full path to the key file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, credentialDir, credentialFile), nil
}
