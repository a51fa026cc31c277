package session

import (
	"errors"
	"os"
	"strconv"
)

// Session carries the authenticated user identity and token used by the
// upstream protocol and REST collaborators.
type Session struct {
	UserID         int
	UserName       string
	OrganizationID string
	Token          string
}

// FromEnv loads the session from the environment. The dashboard shell
// provisions these variables before starting the bridge.
func FromEnv() (*Session, error) {
	rawID := os.Getenv("CHAT_USER_ID")
	if rawID == "" {
		return nil, errors.New("CHAT_USER_ID is not set")
	}
	userID, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, errors.New("CHAT_USER_ID is not a number")
	}

	token := os.Getenv("CHAT_AUTH_TOKEN")
	if token == "" {
		return nil, errors.New("CHAT_AUTH_TOKEN is not set")
	}

	return &Session{
		UserID:         userID,
		UserName:       getEnv("CHAT_USER_NAME", ""),
		OrganizationID: getEnv("CHAT_ORGANIZATION_ID", ""),
		Token:          token,
	}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// CurrentUser returns the session identity as a chat participant.
func (s *Session) CurrentUser() (int, string) {
	return s.UserID, s.UserName
}
