package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/gleaner/ai"
)

// ErrNoChoices is returned when the service replies without any choice.
var ErrNoChoices = fmt.Errorf("%w: no choices returned", ai.ErrUpstream)

var statusCodePattern = regexp.MustCompile(`status code:?\s*(\d{3})`)

// classify maps a langchaingo error onto the ai transport error classes.
// langchaingo reports HTTP failures as formatted strings, so the status code
// is recovered from the message when no typed error is available.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		// Caller gave up; never worth retrying.
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ai.ErrConnection, err)
	}

	msg := strings.ToLower(err.Error())

	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == 429:
			return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
		case code >= 500:
			return fmt.Errorf("%w: %w", ai.ErrUpstream, err)
		default:
			return fmt.Errorf("%w: %w", ai.ErrInvalidRequest, err)
		}
	}

	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "eof"):
		return fmt.Errorf("%w: %w", ai.ErrConnection, err)
	case strings.Contains(msg, "server error"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "service unavailable"):
		return fmt.Errorf("%w: %w", ai.ErrUpstream, err)
	default:
		return fmt.Errorf("%w: %w", ai.ErrInvalidRequest, err)
	}
}
