package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-video-studio/internal/gen"
	"github.com/fpang/ai-video-studio/internal/metrics"
)

// ValidateAPIKey verifies the key behind g by making a minimal API call.
// It returns nil when the key works, or the classified generation error so
// callers can distinguish an invalid key from quota exhaustion or a network
// hiccup.
func ValidateAPIKey(ctx context.Context, g *gen.Generator) error {
	log.Debug().Msg("Validating API key with Gemini API")

	start := time.Now()
	err := g.Ping(ctx)
	elapsed := time.Since(start)

	result := "success"
	if err != nil {
		switch gen.ClassOf(err) {
		case gen.ClassInvalidCredential:
			result = "invalid"
		case gen.ClassQuota:
			result = "quota"
		case gen.ClassTransient:
			result = "network_error"
		default:
			result = "unknown"
		}
	}

	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Metric("ApiKeyValidationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ApiKeyValidationResult").
		Flush()

	if err != nil {
		log.Error().Str("result", result).Err(err).Msg("API key validation failed")
		return err
	}

	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}
