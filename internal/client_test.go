package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ragis-group/ragis-cli/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second)
}

func TestClient_Login(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer token")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "mario" || body["password"] != "segreta" {
			t.Errorf("unexpected credentials: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":    "tok-123",
			"username": "mario",
			"ruolo":    "admin",
		})
	})

	result, err := client.Login("mario", "segreta")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token != "tok-123" || result.Ruolo != "admin" {
		t.Errorf("Login() = %+v", result)
	}
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Credenziali non valide"})
	})

	_, err := client.Login("mario", "sbagliata")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
	if !apiErr.IsAuthFailure() {
		t.Errorf("status = %d, want 401", apiErr.Status)
	}
	if apiErr.Detail != "Credenziali non valide" {
		t.Errorf("detail = %q", apiErr.Detail)
	}
}

func TestClient_Chat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "Ciao" {
			t.Errorf("prompt = %v", body["prompt"])
		}
		if _, present := body["top_k"]; present {
			t.Error("top_k must be omitted when not set")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "Salve"})
	})
	client.SetToken("tok-123")

	answer, err := client.Chat("Ciao", nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if answer != "Salve" {
		t.Errorf("answer = %q, want %q", answer, "Salve")
	}
}

func TestClient_Chat_Overrides(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["top_k"] != float64(5) {
			t.Errorf("top_k = %v, want 5", body["top_k"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "ok"})
	})

	topK := 5
	if _, err := client.Chat("Ciao", &ChatOptions{TopK: &topK}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
}

func TestClient_Chat_ReindexInProgress(t *testing.T) {
	notice := "Il sistema sta aggiornando il database. Riprova tra qualche minuto."
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// During a rebuild the service answers 200 with a notice
		// instead of an answer.
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"reindex": true,
			"testo":   notice,
		})
	})

	answer, err := client.Chat("Ciao", nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if answer != notice {
		t.Errorf("answer = %q, want the reindex notice", answer)
	}
}

func TestClient_Chat_TransportFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := client.Chat("Ciao", nil)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Errorf("Chat() error = %v, want *TransportError", err)
	}
}

func TestClient_DetailListNormalization(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"detail": []map[string]interface{}{
				{"msg": "field required", "loc": []interface{}{"body", "prompt"}},
				{"msg": "value too long", "loc": []interface{}{"body", "prompt"}},
			},
		})
	})

	_, err := client.Chat("", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	want := "field required; value too long"
	if apiErr.Detail != want {
		t.Errorf("detail = %q, want %q", apiErr.Detail, want)
	}
}

func TestClient_Upload(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	docPath := filepath.Join(dir, "contratto.txt")
	testutil.WriteFile(t, docPath, []byte("clausola 1"))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 1 || files[0].Filename != "contratto.txt" {
			t.Errorf("files = %+v", files)
		}
		// The backend spells the key "messagio" on this endpoint.
		_ = json.NewEncoder(w).Encode(map[string]string{"messagio": "Upload completato."})
	})

	message, err := client.Upload([]string{docPath})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if message != "Upload completato." {
		t.Errorf("message = %q", message)
	}
}

func TestClient_Upload_MissingFile(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)
	if _, err := client.Upload([]string{filepath.Join(os.TempDir(), "no-such-file-xyz")}); err == nil {
		t.Error("Upload() with missing file = nil error")
	}
}

func TestClient_GetModels_MixedShapes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models": ["mistral", {"name": "qwen3:8b", "installed": true}]}`))
	})

	models, err := client.GetModels()
	if err != nil {
		t.Fatalf("GetModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "mistral" || models[0].Installed {
		t.Errorf("models[0] = %+v", models[0])
	}
	if models[1].Name != "qwen3:8b" || !models[1].Installed {
		t.Errorf("models[1] = %+v", models[1])
	}
}

func TestClient_SaveParameters_SparseBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body) != 2 {
			t.Errorf("body has %d keys, want 2: %v", len(body), body)
		}
		if body["llm_model"] != "mistral" || body["top_k"] != float64(8) {
			t.Errorf("body = %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Parametri salvati con successo"})
	})

	message, err := client.SaveParameters(map[string]interface{}{
		"llm_model": "mistral",
		"top_k":     8,
	})
	if err != nil {
		t.Fatalf("SaveParameters() error = %v", err)
	}
	if message != "Parametri salvati con successo" {
		t.Errorf("message = %q", message)
	}
}

func TestClient_GetParameters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"llm_model":          "mistral",
			"embed_model":        "intfloat/e5-large-v2",
			"chunk_size":         1500,
			"chunk_overlap":      200,
			"top_k":              8,
			"distance_threshold": 0.6,
		})
	})

	params, err := client.GetParameters()
	if err != nil {
		t.Fatalf("GetParameters() error = %v", err)
	}
	if params.LLMModel != "mistral" || params.ChunkSize != 1500 || params.DistanceThreshold != 0.6 {
		t.Errorf("params = %+v", params)
	}
}

func TestClient_DebugDB(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debug_db/" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"documenti": 42,
			"metadati_sample": []map[string]interface{}{
				{"source": "contratto.pdf", "page": 1},
			},
		})
	})

	info, err := client.DebugDB()
	if err != nil {
		t.Fatalf("DebugDB() error = %v", err)
	}
	if info.Documenti != 42 {
		t.Errorf("documenti = %d, want 42", info.Documenti)
	}
	if len(info.MetadatiSample) != 1 || info.MetadatiSample[0]["source"] != "contratto.pdf" {
		t.Errorf("metadata sample = %+v", info.MetadatiSample)
	}
}

func TestClient_UserCRUD(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		switch r.URL.Path {
		case "/lista-utenti":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"utenti": []map[string]interface{}{
					{"id": 1, "username": "admin", "ruolo": "admin"},
				},
			})
		default:
			_, _ = w.Write([]byte("{}"))
		}
	})

	users, err := client.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Username != "admin" {
		t.Errorf("users = %+v", users)
	}

	if err := client.UpdateUser(7, UserUpdate{Ruolo: "user"}); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/aggiorna-utente/7" {
		t.Errorf("UpdateUser hit %s %s", gotMethod, gotPath)
	}

	if err := client.DeleteUser(7); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/cancella-utente/7" {
		t.Errorf("DeleteUser hit %s %s", gotMethod, gotPath)
	}

	if err := client.Register("anna", "pw", "user"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/registrazione" {
		t.Errorf("Register hit %s %s", gotMethod, gotPath)
	}
}

func TestNormalizeDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain string", `{"detail": "boom"}`, "boom"},
		{"structured list", `{"detail": [{"msg": "a"}, {"msg": "b"}]}`, "a; b"},
		{"no detail", `{"error": "x"}`, ""},
		{"not json", `<html>502</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("normalizeDetail(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}
