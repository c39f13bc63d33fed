package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// serverEngine implements Engine by talking to a running llama.cpp server over
// HTTP using its OpenAI-compatible endpoints. The server owns the weights, so
// instances from this engine do NOT implement Unloadable: asking evald to
// unload before the judge phase is a documented no-op here.
type serverEngine struct {
	baseURL        string
	apiKey         string
	reqTimeout     time.Duration
	connectTimeout time.Duration
	httpClient     *http.Client
}

// NewServerEngine constructs a server-backed engine.
func NewServerEngine(baseURL, apiKey string, reqTimeout, connectTimeout time.Duration) Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Intentionally Timeout=0: all requests carry context-based timeouts, see Generate.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &serverEngine{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		reqTimeout:     reqTimeout,
		connectTimeout: connectTimeout,
		httpClient:     cli,
	}
}

// serverInstance holds per-instance state.
type serverInstance struct {
	engine  *serverEngine
	modelID string
}

func (e *serverEngine) Load(modelPath string) (Instance, error) {
	// In server mode, model selection is conveyed by name/id to the server; we do not use on-disk path.
	return &serverInstance{
		engine:  e,
		modelID: strings.TrimSpace(modelPath),
	}, nil
}

// openAICompletionRequest represents the payload for /v1/completions.
type openAICompletionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stream      bool     `json:"stream"`
	// RepeatPenalty is not standard OpenAI; llama.cpp builds accept it under this
	// key and servers that do not will safely ignore it.
	RepeatPenalty float32 `json:"repeat_penalty,omitempty"`
}

// openAIStreamChoiceDelta is a minimal subset of OpenAI streaming response.
type openAIStreamChoiceDelta struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Object  string                    `json:"object"`
	Choices []openAIStreamChoiceDelta `json:"choices"`
}

func (s *serverInstance) Generate(ctx context.Context, prompt string, params GenParams, onToken func(string) error) (Result, error) {
	if s.engine == nil || s.engine.httpClient == nil {
		return Result{}, errors.New("server engine not initialized")
	}
	// Apply request timeout via context, if configured.
	if s.engine.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.engine.reqTimeout)
		defer cancel()
	}

	payload := openAICompletionRequest{
		Model:         s.modelID,
		Prompt:        prompt,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		Stop:          params.Stop,
		Seed:          params.Seed,
		Stream:        true,
		RepeatPenalty: params.RepeatPenalty,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.engine.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.engine.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.engine.apiKey)
	}
	resp, err := s.engine.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, errors.New("llama server http error: " + resp.Status + ": " + string(b))
	}
	// Stream parse. Servers emit Server-Sent Events with lines beginning with "data: ".
	r := bufio.NewReader(resp.Body)
	var final Result
	var buf strings.Builder
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSpace(line)
			if line == "" {
				// skip heartbeats/empties
			} else if strings.HasPrefix(strings.ToLower(line), "data:") {
				data := strings.TrimSpace(line[len("data:"):])
				if data == "[DONE]" {
					break
				}
				var msg openAIStreamResponse
				if err := json.Unmarshal([]byte(data), &msg); err == nil && len(msg.Choices) > 0 {
					frag := msg.Choices[0].Delta.Content
					if frag == "" {
						frag = msg.Choices[0].Text
					}
					if frag != "" {
						buf.WriteString(frag)
						if cbErr := onToken(frag); cbErr != nil {
							final.Content = buf.String()
							return final, cbErr
						}
					}
					if fr := msg.Choices[0].FinishReason; fr != "" {
						final.FinishReason = fr
					}
					continue
				}
				// Some servers stream raw JSON objects per line (non-SSE). Attempt to parse token fields.
				var generic map[string]any
				if err := json.Unmarshal([]byte(data), &generic); err == nil {
					if tok, ok := generic["content"].(string); ok && tok != "" {
						buf.WriteString(tok)
						if cbErr := onToken(tok); cbErr != nil {
							final.Content = buf.String()
							return final, cbErr
						}
						continue
					}
				}
				log.Debug().Str("engine", "llama-server").Str("line", line).Msg("unknown stream line")
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				final.Content = buf.String()
				return final, ctx.Err()
			}
			log.Warn().Str("engine", "llama-server").Err(err).Msg("stream read error")
			final.Content = buf.String()
			return final, err
		}
	}
	final.Content = buf.String()
	if final.FinishReason == "" {
		final.FinishReason = "stop"
	}
	return final, nil
}

func (s *serverInstance) Close() error { return nil }
