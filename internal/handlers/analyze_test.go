package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docassist/internal/llm"
)

func TestAnalyzeHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)
	doc, err := env.pipeline.Ingest(context.Background(), "paper.txt",
		strings.NewReader("This paper argues that smaller batch sizes improve recall."))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	env.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return("an answer", nil).Times(5)

	handler := NewAnalyzeHandler(env.engine, env.docs)
	data, _ := json.Marshal(AnalyzeRequest{CollectionID: doc.ID})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBuffer(data))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ServeHTTP() status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Analysis map[string]string `json:"analysis"`
		Document DocumentResponse  `json:"document"`
	}
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Analysis) != 5 {
		t.Errorf("analysis has %d entries, want 5", len(resp.Analysis))
	}
	if resp.Analysis["What is the main topic or theme of this document?"] != "an answer" {
		t.Error("analysis missing the main topic answer")
	}
	if resp.Document.ID != doc.ID {
		t.Errorf("document id = %q, want %q", resp.Document.ID, doc.ID)
	}

	// Raw body keeps the fixed question order.
	raw := w.Body.String()
	topicPos := strings.Index(raw, "What is the main topic")
	audiencePos := strings.Index(raw, "Who is the target audience")
	recommendPos := strings.Index(raw, "What recommendations or action items")
	if topicPos < 0 || audiencePos < 0 || recommendPos < 0 {
		t.Fatalf("analysis body missing fixed questions:\n%s", raw)
	}
	if !(topicPos < audiencePos && audiencePos < recommendPos) {
		t.Error("analysis keys not in fixed question order")
	}
}

func TestAnalyzeHandler_ServeHTTP_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		body       string
		ingestDoc  bool
		mockSetup  func(env *testEnv)
		wantStatus int
	}{
		{
			name:       "unknown document",
			body:       `{"collection_id":"nope"}`,
			mockSetup:  func(env *testEnv) {},
			wantStatus: http.StatusNotFound,
		},
		{
			name:      "provider failure",
			ingestDoc: true,
			mockSetup: func(env *testEnv) {
				env.generator.EXPECT().Generate(gomock.Any(), gomock.Any()).
					Return("", &llm.Error{Op: "generate", Err: errors.New("bad request")}).
					AnyTimes()
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "missing collection id",
			body:       `{}`,
			mockSetup:  func(env *testEnv) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, ctrl)
			tt.mockSetup(env)

			body := tt.body
			if tt.ingestDoc {
				doc, err := env.pipeline.Ingest(context.Background(), "paper.txt",
					strings.NewReader("Some content to index."))
				if err != nil {
					t.Fatalf("Ingest() error = %v", err)
				}
				data, _ := json.Marshal(AnalyzeRequest{CollectionID: doc.ID})
				body = string(data)
			}

			handler := NewAnalyzeHandler(env.engine, env.docs)
			req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
