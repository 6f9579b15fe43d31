package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is where the RAGIS service listens when no base URL is
// configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

// Client talks to the RAGIS service over HTTP JSON. Protected calls
// carry the bearer token obtained at login.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL. An empty base URL
// falls back to the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token attached to protected calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// LoginResult is the response to a successful login.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Ruolo    string `json:"ruolo"`
}

// Login exchanges credentials for a bearer token. The token is not
// stored on the client; the caller decides whether to adopt it.
func (c *Client) Login(username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var result LoginResult
	if err := c.doJSON(http.MethodPost, "/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChatOptions carries optional retrieval overrides; the backend falls
// back to its stored parameters for any field left nil.
type ChatOptions struct {
	TopK              *int
	DistanceThreshold *float64
}

type chatRequest struct {
	Prompt            string   `json:"prompt"`
	TopK              *int     `json:"top_k,omitempty"`
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
}

// Chat sends a prompt and returns the generated answer. While the
// service is rebuilding its vector database it answers 200 with a
// reindex notice instead of an answer; that notice is returned as the
// reply text.
func (c *Client) Chat(prompt string, opts *ChatOptions) (string, error) {
	req := chatRequest{Prompt: prompt}
	if opts != nil {
		req.TopK = opts.TopK
		req.DistanceThreshold = opts.DistanceThreshold
	}
	var resp struct {
		Answer  string `json:"answer"`
		Reindex bool   `json:"reindex"`
		Testo   string `json:"testo"`
	}
	if err := c.doJSON(http.MethodPost, "/chat/", req, &resp); err != nil {
		return "", err
	}
	if resp.Reindex {
		return resp.Testo, nil
	}
	return resp.Answer, nil
}

// Upload sends one or more documents as a multipart request. Returns
// the status message from the service, which spells the key either
// "message" or "messagio" depending on the endpoint version.
func (c *Client) Upload(paths []string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", path, err)
		}
		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return "", fmt.Errorf("failed to attach %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload/", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	body, err := c.send(req)
	if err != nil {
		return "", err
	}

	var resp struct {
		Message  string `json:"message"`
		Messagio string `json:"messagio"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &TransportError{Op: "decode upload response", Err: err}
	}
	if resp.Message != "" {
		return resp.Message, nil
	}
	return resp.Messagio, nil
}

// Reindex asks the service to rebuild its vector database.
func (c *Client) Reindex() (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(http.MethodGet, "/reindex/", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Parameters are the retrieval and chunking settings stored server-side.
type Parameters struct {
	LLMModel          string  `json:"llm_model"`
	EmbedModel        string  `json:"embed_model"`
	ChunkSize         int     `json:"chunk_size"`
	ChunkOverlap      int     `json:"chunk_overlap"`
	TopK              int     `json:"top_k"`
	DistanceThreshold float64 `json:"distance_threshold"`
}

// GetParameters fetches the current server-side parameters.
func (c *Client) GetParameters() (*Parameters, error) {
	var params Parameters
	if err := c.doJSON(http.MethodGet, "/get_parameters", nil, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// SaveParameters persists a sparse subset of parameters; only the keys
// present in fields are sent.
func (c *Client) SaveParameters(fields map[string]interface{}) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(http.MethodPost, "/save_parameters", fields, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Model is an LLM known to the service. The endpoint returns either
// bare name strings or objects with an installed flag.
type Model struct {
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
}

// UnmarshalJSON accepts both the bare-string and the object form.
func (m *Model) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		m.Name = name
		return nil
	}
	type modelObject Model
	var obj modelObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*m = Model(obj)
	return nil
}

// GetModels lists the models available on the service.
func (c *Client) GetModels() ([]Model, error) {
	var resp struct {
		Models []Model `json:"models"`
	}
	if err := c.doJSON(http.MethodGet, "/get_models", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// DownloadModel asks the service to pull a model.
func (c *Client) DownloadModel(name string) error {
	body := map[string]string{"model_name": name}
	return c.doJSON(http.MethodPost, "/download_model", body, nil)
}

// DebugInfo describes the state of the service's vector database.
type DebugInfo struct {
	Documenti      int                      `json:"documenti"`
	MetadatiSample []map[string]interface{} `json:"metadati_sample"`
}

// DebugDB reports the indexed document count and a small metadata
// sample from the vector database.
func (c *Client) DebugDB() (*DebugInfo, error) {
	var info DebugInfo
	if err := c.doJSON(http.MethodGet, "/debug_db/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// User is an account on the service.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Ruolo    string `json:"ruolo"`
}

// Register creates a new account. Admin only.
func (c *Client) Register(username, password, ruolo string) error {
	body := map[string]string{
		"username": username,
		"password": password,
		"ruolo":    ruolo,
	}
	return c.doJSON(http.MethodPost, "/registrazione", body, nil)
}

// ListUsers returns all accounts. Admin only.
func (c *Client) ListUsers() ([]User, error) {
	var resp struct {
		Utenti []User `json:"utenti"`
	}
	if err := c.doJSON(http.MethodGet, "/lista-utenti", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Utenti, nil
}

// UserUpdate is a sparse account update; empty fields are not sent.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Ruolo    string `json:"ruolo,omitempty"`
}

// UpdateUser applies a sparse update to an account. Admin only.
func (c *Client) UpdateUser(id int, update UserUpdate) error {
	path := fmt.Sprintf("/aggiorna-utente/%d", id)
	return c.doJSON(http.MethodPut, path, update, nil)
}

// DeleteUser removes an account. Admin only.
func (c *Client) DeleteUser(id int) error {
	path := fmt.Sprintf("/cancella-utente/%d", id)
	return c.doJSON(http.MethodDelete, path, nil, nil)
}

func (c *Client) doJSON(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	respBody, err := c.send(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// send executes the request and returns the body on 2xx. Non-2xx
// responses are normalized into an APIError.
func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Detail: normalizeDetail(body)}
	}
	return body, nil
}

// normalizeDetail extracts a single human-readable message from an
// error response. The backend's "detail" field is a string for plain
// failures and a list of structured entries for validation failures.
func normalizeDetail(body []byte) string {
	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || len(wrapper.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(wrapper.Detail, &text); err == nil {
		return text
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(wrapper.Detail, &entries); err == nil {
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				parts = append(parts, e.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return string(wrapper.Detail)
}
