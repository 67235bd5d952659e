package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const postmarkURL = "https://api.postmarkapp.com"

// PostmarkSender talks to the Postmark REST API directly.
type PostmarkSender struct {
	httpClient *http.Client
	baseURL    string
	token      string
	from       string
}

func NewPostmarkSender(token, from string) *PostmarkSender {
	return &PostmarkSender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    postmarkURL,
		token:      token,
		from:       from,
	}
}

func (s *PostmarkSender) Name() string { return "postmark" }

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody,omitempty"`
	TextBody      string `json:"TextBody,omitempty"`
	Tag           string `json:"Tag,omitempty"`
	MessageStream string `json:"MessageStream"`
}

type postmarkResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errNoRecipients
	}
	body, err := json.Marshal(postmarkEmail{
		From:          s.from,
		To:            strings.Join(msg.To, ","),
		Subject:       msg.Subject,
		HtmlBody:      msg.HTML,
		TextBody:      msg.Text,
		Tag:           msg.Template,
		MessageStream: "outbound",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("postmark: %w", err)
	}
	defer resp.Body.Close()

	var result postmarkResponse
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != http.StatusOK || result.ErrorCode != 0 {
		return fmt.Errorf("postmark: status %d, error %d: %s", resp.StatusCode, result.ErrorCode, result.Message)
	}
	return nil
}
