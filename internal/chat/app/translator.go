package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"collab_chat_service/pkg/config"

	"github.com/gofiber/fiber/v2"
)

// TranslationResult translator output
type TranslationResult struct {
	Text           string
	SourceLanguage string
}

// Translator external localization API
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (TranslationResult, error)
}

// HTTPTranslator DeepL style translate endpoint
type HTTPTranslator struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
}

// NewHTTPTranslator create HTTPTranslator from config
func NewHTTPTranslator(c config.TranslatorConfig) *HTTPTranslator {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTranslator{endpoint: c.Endpoint, apiKey: c.APIKey, timeout: timeout}
}

type translateRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate call the endpoint once, no retry
func (t *HTTPTranslator) Translate(ctx context.Context, text, targetLang string) (TranslationResult, error) {
	if err := ctx.Err(); err != nil {
		return TranslationResult{}, err
	}
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(t.endpoint)
	agent.Set(fiber.HeaderAuthorization, "DeepL-Auth-Key "+t.apiKey)
	agent.JSON(translateRequest{Text: []string{text}, TargetLang: strings.ToUpper(targetLang)})
	agent.Timeout(timeout)

	var resp translateResponse
	status, body, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return TranslationResult{}, fmt.Errorf("translate request: %w", errs[0])
	}
	if status != fiber.StatusOK {
		return TranslationResult{}, fmt.Errorf("translate status %d: %s", status, truncate(string(body), 200))
	}
	if len(resp.Translations) == 0 {
		return TranslationResult{}, fmt.Errorf("translate: empty response")
	}

	return TranslationResult{
		Text:           resp.Translations[0].Text,
		SourceLanguage: resp.Translations[0].DetectedSourceLanguage,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
