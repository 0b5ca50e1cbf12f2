package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/udsonbraga/safelady/shared"
)

const DEFAULT_BASE_URL = "https://api.telegram.org"

// LiveLocationPeriodSeconds is how long a shared live location stays
// visible to the contact (15 minutes).
const LiveLocationPeriodSeconds = 900

type ClientWrapper struct {
	httpClient *http.Client
	config     shared.TelegramConfig
	baseURL    string
	testMode   bool
}

type sendMessageParams struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendLocationParams struct {
	ChatID     string  `json:"chat_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	LivePeriod int     `json:"live_period"`
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewClient(config shared.TelegramConfig, testMode bool) *ClientWrapper {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DEFAULT_BASE_URL
	}

	return &ClientWrapper{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		config:     config,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		testMode:   testMode,
	}
}

// Enabled reports whether a bot token is configured. An unconfigured
// client disables the Telegram channel rather than failing dispatch.
func (cw *ClientWrapper) Enabled() bool {
	return cw.testMode || cw.config.BotToken != ""
}

// SendMessage delivers an HTML-formatted text message to the given chat.
func (cw *ClientWrapper) SendMessage(chatID, text string) error {
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("invalid telegram chat id")
	}

	if cw.testMode {
		return nil
	}

	return cw.post("sendMessage", sendMessageParams{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: false,
	})
}

// SendLocation shares a live location with the given chat for
// LiveLocationPeriodSeconds.
func (cw *ClientWrapper) SendLocation(chatID string, latitude, longitude float64) error {
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("invalid telegram chat id")
	}

	if cw.testMode {
		return nil
	}

	return cw.post("sendLocation", sendLocationParams{
		ChatID:     chatID,
		Latitude:   latitude,
		Longitude:  longitude,
		LivePeriod: LiveLocationPeriodSeconds,
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (cw *ClientWrapper) post(method string, params interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%v/bot%v/%v", cw.baseURL, cw.config.BotToken, method)
	resp, err := cw.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %v: %v", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	apiResp := apiResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err == nil && apiResp.Description != "" {
		return fmt.Errorf("telegram %v: %v: %v", method, resp.Status, apiResp.Description)
	}

	return fmt.Errorf("telegram %v: %v", method, resp.Status)
}
