package handler_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/examdeck/examdeck-backend/internal/catalog"
	"github.com/examdeck/examdeck-backend/internal/config"
	"github.com/examdeck/examdeck-backend/internal/database"
	"github.com/examdeck/examdeck-backend/internal/handler"
	"github.com/examdeck/examdeck-backend/internal/router"
	"github.com/examdeck/examdeck-backend/internal/service"
	"github.com/examdeck/examdeck-backend/internal/store"
	"github.com/examdeck/examdeck-backend/internal/validator"
	"github.com/examdeck/examdeck-backend/internal/websocket"
)

const testDoc = `{
	"exams": [
		{
			"exam_id": 1,
			"questions": [
				{
					"id": 1,
					"question": "one",
					"answers": [{"id": 1, "text": "a"}, {"id": 2, "text": "b"}],
					"correct_answer_ids": [2]
				},
				{
					"id": 2,
					"question": "two",
					"answers": [{"id": 1, "text": "a"}, {"id": 2, "text": "b"}, {"id": 3, "text": "c"}],
					"correct_answer_ids": [1, 3]
				}
			]
		}
	]
}`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.New(db)
	deck, err := catalog.Parse([]byte(testDoc))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	log := zerolog.Nop()
	loader := catalog.NewLoader(filepath.Join(t.TempDir(), "missing.json"), st, log)
	hub := websocket.NewHub(log)
	catalogSvc := service.NewCatalogService(deck, catalog.SourceFile, st, loader, log)
	sessionSvc := service.NewSessionService(catalogSvc, st, hub, log)

	cfg := &config.Config{
		GinMode:        gin.TestMode,
		WebDir:         filepath.Join(t.TempDir(), "no-web"),
		MaxImportBytes: 1024,
	}
	return router.SetupRouter(&router.Handlers{
		Catalog: handler.NewCatalogHandler(catalogSvc, sessionSvc, cfg.MaxImportBytes),
		Session: handler.NewSessionHandler(sessionSvc),
		WS:      handler.NewWSHandler(sessionSvc, hub, log, nil),
	}, cfg)
}

// envelope mirrors the response structure for decoding in assertions.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w.Code, env
}

func TestListExams(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodGet, "/api/v1/exams", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var data struct {
		Exams []struct {
			ExamID        int  `json:"exam_id"`
			QuestionCount int  `json:"question_count"`
			Finalized     bool `json:"finalized"`
		} `json:"exams"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Exams) != 1 || data.Exams[0].ExamID != 1 || data.Exams[0].QuestionCount != 2 {
		t.Fatalf("exams = %+v", data.Exams)
	}
	if data.Source != "file" {
		t.Fatalf("source = %q, want file", data.Source)
	}
	if env.Metadata.RequestID == "" {
		t.Fatal("expected a request id in metadata")
	}
}

func TestOpenSession(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodGet, "/api/v1/exams/1/session", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var snap struct {
		Mode     string `json:"mode"`
		Progress struct {
			Index int `json:"index"`
			Total int `json:"total"`
		} `json:"progress"`
		Question *struct {
			ID               int   `json:"id"`
			CorrectAnswerIDs []int `json:"correct_answer_ids"`
		} `json:"question"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if snap.Mode != "in_progress" || snap.Progress.Total != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Question == nil || snap.Question.CorrectAnswerIDs != nil {
		t.Fatalf("question = %+v, correct answers must stay hidden", snap.Question)
	}
}

func TestOpenSessionUnknownExam(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodGet, "/api/v1/exams/99/session", "")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if env.Error == nil || env.Error.Code != "EXAM_NOT_FOUND" {
		t.Fatalf("error = %+v, want EXAM_NOT_FOUND", env.Error)
	}
}

func TestOpenSessionInvalidID(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/v1/exams/abc/session", "/api/v1/exams/0/session"} {
		code, env := do(t, r, http.MethodGet, path, "")
		if code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, code)
		}
		if env.Error == nil || env.Error.Code != "INVALID_ID" {
			t.Fatalf("%s: error = %+v, want INVALID_ID", path, env.Error)
		}
	}
}

func TestSelectAnswerValidation(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/exams/1/session/answer", `{"question_id": 1}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("error = %+v, want VALIDATION_ERROR", env.Error)
	}
	if _, ok := env.Error.Fields["answer_id"]; !ok {
		t.Fatalf("fields = %v, want answer_id entry", env.Error.Fields)
	}
}

func TestAnswerAndFinalizeFlow(t *testing.T) {
	r := newTestRouter(t)

	code, _ := do(t, r, http.MethodPost, "/api/v1/exams/1/session/answer", `{"question_id": 1, "answer_id": 2}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	// Answering the last question finalizes; the snapshot carries the summary.
	code, env := do(t, r, http.MethodPost, "/api/v1/exams/1/session/answer", `{"question_id": 2, "answer_id": 1}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var snap struct {
		Mode    string `json:"mode"`
		Summary *struct {
			CorrectCount int `json:"correct_count"`
			WrongCount   int `json:"wrong_count"`
			Percent      int `json:"percent"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if snap.Mode != "finalized_summary" {
		t.Fatalf("mode = %q, want finalized_summary", snap.Mode)
	}
	if snap.Summary == nil || snap.Summary.Percent != 50 {
		t.Fatalf("summary = %+v, want 50%%", snap.Summary)
	}

	code, env = do(t, r, http.MethodGet, "/api/v1/exams/1/session/summary", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var sum struct {
		Percent int `json:"percent"`
	}
	if err := json.Unmarshal(env.Data, &sum); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if sum.Percent != 50 {
		t.Fatalf("percent = %d, want 50", sum.Percent)
	}
}

func TestNavigationEndpoints(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/exams/1/session/next", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var snap struct {
		Progress struct {
			Index int `json:"index"`
		} `json:"progress"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if snap.Progress.Index != 1 {
		t.Fatalf("index = %d, want 1", snap.Progress.Index)
	}

	code, env = do(t, r, http.MethodPost, "/api/v1/exams/1/session/previous", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if snap.Progress.Index != 0 {
		t.Fatalf("index = %d, want 0", snap.Progress.Index)
	}
}

func TestRevealDisclosesCorrectAnswers(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/exams/1/session/reveal", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var snap struct {
		Question struct {
			Revealed         bool  `json:"revealed"`
			CorrectAnswerIDs []int `json:"correct_answer_ids"`
		} `json:"question"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !snap.Question.Revealed || len(snap.Question.CorrectAnswerIDs) != 1 {
		t.Fatalf("question = %+v, want revealed with correct answers", snap.Question)
	}
}

func TestImportExams(t *testing.T) {
	r := newTestRouter(t)

	replacement := `{
		"exams": [
			{
				"exam_id": 7,
				"questions": [
					{
						"id": 1,
						"question": "q",
						"answers": [{"id": 1, "text": "a"}],
						"correct_answer_ids": [1]
					}
				]
			}
		]
	}`

	code, env := do(t, r, http.MethodPost, "/api/v1/exams/import", replacement)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var data struct {
		ExamsLoaded int `json:"exams_loaded"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.ExamsLoaded != 1 {
		t.Fatalf("exams_loaded = %d, want 1", data.ExamsLoaded)
	}

	// The old exam is gone, the imported one is live.
	code, _ = do(t, r, http.MethodGet, "/api/v1/exams/1/session", "")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for replaced exam", code)
	}
	code, _ = do(t, r, http.MethodGet, "/api/v1/exams/7/session", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for imported exam", code)
	}
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/exams/import", `{"exams": [`)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if env.Error == nil || env.Error.Code != "CATALOG_INVALID" {
		t.Fatalf("error = %+v, want CATALOG_INVALID", env.Error)
	}
}

func TestImportRejectsOversizedBody(t *testing.T) {
	r := newTestRouter(t)

	big := `{"exams": [], "padding": "` + strings.Repeat("x", 2048) + `"}`
	code, env := do(t, r, http.MethodPost, "/api/v1/exams/import", big)
	if code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", code)
	}
	if env.Error == nil || env.Error.Code != "FILE_TOO_LARGE" {
		t.Fatalf("error = %+v, want FILE_TOO_LARGE", env.Error)
	}
}

func TestInstallSample(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/exams/sample", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var data struct {
		ExamsLoaded int `json:"exams_loaded"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.ExamsLoaded == 0 {
		t.Fatal("expected sample exams loaded")
	}
}

func TestDiscardImported(t *testing.T) {
	r := newTestRouter(t)

	if code, _ := do(t, r, http.MethodPost, "/api/v1/exams/sample", ""); code != http.StatusOK {
		t.Fatalf("sample install failed: %d", code)
	}
	code, env := do(t, r, http.MethodDelete, "/api/v1/exams/import", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var data struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Source != "none" {
		t.Fatalf("source = %q, want none (no exams file on disk)", data.Source)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	code, _ := do(t, r, http.MethodGet, "/health", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
}
