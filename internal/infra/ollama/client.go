// Package ollama is the language-model backend adapter. It talks to a
// local Ollama server's /api/chat endpoint, with or without tools.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"delta-assistant/internal/infra"
	"delta-assistant/internal/router"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2:3b"
	}
	return &Client{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type tool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Parameters  router.ToolParams `json:"parameters"`
	} `json:"function"`
}

type request struct {
	Model    string         `json:"model"`
	Messages []message      `json:"messages"`
	Tools    []tool         `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type response struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

// Chat runs one non-streaming turn, optionally offering tools.
func (c *Client) Chat(ctx context.Context, system, user string, tools []router.Tool, opts router.Options) (router.ChatResult, error) {
	reqBody := request{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Tools:   convertTools(tools),
		Stream:  false,
		Options: convertOptions(opts),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return router.ChatResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(respBody))
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return err
			}
			return infra.Permanent(err)
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return router.ChatResult{}, retryErr
	}

	out := router.ChatResult{Content: result.Message.Content}
	for _, tc := range result.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, router.ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// ChatStream runs a streaming turn without tools, invoking onChunk per
// content fragment and returning the concatenated reply.
func (c *Client) ChatStream(ctx context.Context, system, user string, opts router.Options, onChunk func(string)) (string, error) {
	reqBody := request{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  true,
		Options: convertOptions(opts),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(respBody))
	}

	var full bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk response
		if err := json.Unmarshal(line, &chunk); err != nil {
			return full.String(), fmt.Errorf("decoding stream chunk: %w", err)
		}
		if chunk.Message.Content != "" {
			if onChunk != nil {
				onChunk(chunk.Message.Content)
			}
			full.WriteString(chunk.Message.Content)
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("reading stream: %w", err)
	}
	return full.String(), nil
}

func convertTools(in []router.Tool) []tool {
	out := make([]tool, 0, len(in))
	for _, t := range in {
		var ot tool
		ot.Type = "function"
		ot.Function.Name = t.Name
		ot.Function.Description = t.Description
		ot.Function.Parameters = t.Parameters
		out = append(out, ot)
	}
	return out
}

func convertOptions(opts router.Options) map[string]any {
	out := map[string]any{}
	if opts.NumPredict > 0 {
		out["num_predict"] = opts.NumPredict
	}
	if opts.Temperature > 0 {
		out["temperature"] = opts.Temperature
	}
	if opts.TopK > 0 {
		out["top_k"] = opts.TopK
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
