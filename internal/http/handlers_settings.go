package http

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/AdrianVollmer/Plated/internal/jobs"
	"github.com/AdrianVollmer/Plated/internal/store"
)

// Timeout bounds and default match the ai_settings CHECK constraint
// and column default.
const (
	minSettingsTimeout     = 10
	maxSettingsTimeout     = 600
	defaultSettingsTimeout = 60
)

// getSettingsHandler returns the active AI settings with the API key
// redacted.
func getSettingsHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(jobs.Store)

	settings, err := st.ActiveSettings(c.Context())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "NOT_CONFIGURED",
				Error:   "AI extraction is not configured",
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "SETTINGS_LOOKUP_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(SettingsResponse{Success: true, Settings: settingsView(settings)})
}

// putSettingsHandler stores a new active settings revision. Earlier
// revisions are kept but deactivated.
func putSettingsHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(jobs.Store)

	var reqBody SettingsRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	if code, msg := validateSettings(&reqBody); code != "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    code,
			Error:   msg,
		})
	}

	saved, err := st.SaveSettings(c.Context(), store.Settings{
		APIURL:         reqBody.APIURL,
		APIKey:         reqBody.APIKey,
		Model:          reqBody.Model,
		MaxTokens:      reqBody.MaxTokens,
		Temperature:    reqBody.Temperature,
		TimeoutSeconds: reqBody.TimeoutSeconds,
	})
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "SETTINGS_SAVE_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(SettingsResponse{Success: true, Settings: settingsView(saved)})
}

func validateSettings(req *SettingsRequest) (string, string) {
	req.APIURL = strings.TrimSpace(req.APIURL)
	if req.APIURL == "" {
		return "BAD_REQUEST", "Missing required field 'apiUrl'"
	}
	parsed, err := url.Parse(req.APIURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "BAD_REQUEST", "Field 'apiUrl' must be an http or https URL"
	}
	if strings.TrimSpace(req.Model) == "" {
		return "BAD_REQUEST", "Missing required field 'model'"
	}
	if req.TimeoutSeconds == 0 {
		req.TimeoutSeconds = defaultSettingsTimeout
	}
	if req.TimeoutSeconds < minSettingsTimeout || req.TimeoutSeconds > maxSettingsTimeout {
		return "BAD_REQUEST", "Field 'timeoutSeconds' must be between 10 and 600"
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return "BAD_REQUEST", "Field 'temperature' must be between 0 and 2"
	}
	if req.MaxTokens < 0 {
		return "BAD_REQUEST", "Field 'maxTokens' must not be negative"
	}
	return "", ""
}
