package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the failure modes callers branch on.
var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrAccessDenied    = errors.New("channel is private or access denied")
	ErrNotAuthorized   = errors.New("telegram client not authorized")
)

// FloodWaitError is returned when Telegram asks us to back off.
type FloodWaitError struct {
	Wait time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("telegram flood wait: retry in %s", e.Wait)
}

// floodWaitSeconds extracts the wait duration from a FLOOD_WAIT_n error.
// Returns 0 if err is not a flood wait.
//
// gotgproto/gotd errors are usually wrapped, so we match the error string
// rather than coupling to the gotd error type.
func floodWaitSeconds(err error) int {
	if err == nil {
		return 0
	}

	str := err.Error()
	parts := strings.Split(str, "FLOOD_WAIT_")
	if len(parts) < 2 {
		return 0
	}

	// suffix may continue after the number, e.g. "FLOOD_WAIT_15 (caused by ...)"
	var seconds int
	_, _ = fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &seconds)
	return seconds
}

// classifyError maps raw MTProto errors onto the package sentinels.
// Unrecognized errors pass through wrapped in ctx.
func classifyError(err error, ctx string) error {
	if err == nil {
		return nil
	}

	if wait := floodWaitSeconds(err); wait > 0 {
		return &FloodWaitError{Wait: time.Duration(wait) * time.Second}
	}

	str := err.Error()
	switch {
	case strings.Contains(str, "USERNAME_NOT_OCCUPIED"),
		strings.Contains(str, "USERNAME_INVALID"),
		strings.Contains(str, "CHANNEL_INVALID"),
		strings.Contains(str, "PEER_ID_INVALID"):
		return fmt.Errorf("%s: %w", ctx, ErrChannelNotFound)
	case strings.Contains(str, "CHANNEL_PRIVATE"),
		strings.Contains(str, "CHAT_ADMIN_REQUIRED"),
		strings.Contains(str, "INVITE_REQUEST_SENT"):
		return fmt.Errorf("%s: %w", ctx, ErrAccessDenied)
	case strings.Contains(str, "AUTH_KEY_UNREGISTERED"),
		strings.Contains(str, "SESSION_REVOKED"):
		return fmt.Errorf("%s: %w", ctx, ErrNotAuthorized)
	}

	return fmt.Errorf("%s: %w", ctx, err)
}
