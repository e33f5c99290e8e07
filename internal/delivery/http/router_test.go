package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"telemed-backend/config"
	"telemed-backend/internal/delivery/http/handler"
	"telemed-backend/internal/delivery/http/middleware"
	"telemed-backend/internal/repository"
	"telemed-backend/internal/service"
	"telemed-backend/internal/usecase"
	"telemed-backend/pkg/jwt"
	"telemed-backend/pkg/validator"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type testAPI struct {
	server *httptest.Server
	jwt    *jwt.JWTService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithOrigin(t, "")
}

func newTestAPIWithOrigin(t *testing.T, allowOrigin string) *testAPI {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	feed := service.NewMemoryChangeFeed(16)
	repo := repository.NewPublishingDocumentRepository(repository.NewMemoryDocumentRepository(), feed, log)
	subs := service.NewSubscriptionManager(repo, feed, log, 10*time.Millisecond)
	audit := service.NewAuditService(log, repo)
	v := validator.NewValidator()
	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "router-test", AccessExpiry: time.Hour})

	users := usecase.NewUserDirectoryUsecase(log, repo, audit)
	streamer := handler.NewStreamer(allowOrigin, log)
	router := NewRouter(Handlers{
		User:         handler.NewUserHandler(users, v),
		Appointment:  handler.NewAppointmentHandler(usecase.NewAppointmentUsecase(log, repo, subs, audit), v, streamer),
		Consultation: handler.NewConsultationHandler(usecase.NewConsultationUsecase(log, repo, audit), v),
		Chat:         handler.NewChatHandler(usecase.NewChatUsecase(log, repo, subs), v, streamer),
		VideoCall:    handler.NewVideoCallHandler(usecase.NewVideoCallUsecase(log, repo, audit), v),
		Dashboard:    handler.NewDashboardHandler(usecase.NewDashboardUsecase(log, repo)),
	}, middleware.NewAuthMiddleware(jwtService, users, log), middleware.NewCORSMiddleware(allowOrigin))

	server := httptest.NewServer(router.Setup())
	t.Cleanup(func() {
		server.Close()
		subs.Close()
		feed.Stop()
	})
	return &testAPI{server: server, jwt: jwtService}
}

// token issues a role-less token; the role is resolved from the profile
func (a *testAPI) token(t *testing.T, uid string) string {
	t.Helper()
	token, err := a.jwt.GenerateAccessToken(uid, uid+"@x.test", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+"/api/v1"+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func (a *testAPI) register(t *testing.T, uid, role string) string {
	t.Helper()
	token := a.token(t, uid)
	body := map[string]interface{}{
		"email":        uid + "@x.test",
		"display_name": "User " + uid,
		"role":         role,
	}
	if role == "doctor" {
		body["specialization"] = "General"
		body["license"] = "L-" + uid
		body["consultation_fee"] = "100"
	}
	if code, env := a.do(t, http.MethodPost, "/users/me", token, body); code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", uid, code, env.Message)
	}
	return token
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRouter_RegistrationGate(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(t, "newcomer")

	if code, _ := api.do(t, http.MethodGet, "/appointments", "", nil); code != http.StatusUnauthorized {
		t.Errorf("no token: %d", code)
	}
	if code, _ := api.do(t, http.MethodGet, "/appointments", token, nil); code != http.StatusForbidden {
		t.Errorf("unregistered: %d", code)
	}
	if code, _ := api.do(t, http.MethodGet, "/users/me", token, nil); code != http.StatusNotFound {
		t.Errorf("profile before registering: %d", code)
	}

	api.register(t, "newcomer", "patient")
	if code, _ := api.do(t, http.MethodGet, "/appointments", token, nil); code != http.StatusOK {
		t.Errorf("registered: %d", code)
	}
	if code, _ := api.do(t, http.MethodPost, "/users/me", token, map[string]string{
		"email": "again@x.test", "display_name": "Again", "role": "patient",
	}); code != http.StatusConflict {
		t.Errorf("second registration: %d", code)
	}
	if code, _ := api.do(t, http.MethodPut, "/users/me", token, map[string]string{"role": "doctor"}); code != http.StatusBadRequest {
		t.Errorf("role change: %d", code)
	}
}

func TestRouter_RegisterTakesEmailFromToken(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(t, "quiet")

	code, env := api.do(t, http.MethodPost, "/users/me", token, map[string]string{
		"display_name": "Quiet Patient", "role": "patient",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: %d %s", code, env.Message)
	}
	var profile struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(env.Data, &profile)
	if profile.Email != "quiet@x.test" {
		t.Errorf("email = %q, want the token's", profile.Email)
	}
}

func TestRouter_AppointmentFlow(t *testing.T) {
	api := newTestAPI(t)
	patient := api.register(t, "pat-1", "patient")
	doctor := api.register(t, "doc-1", "doctor")
	outsider := api.register(t, "doc-2", "doctor")

	code, env := api.do(t, http.MethodPost, "/appointments", patient, map[string]interface{}{
		"doctor_id":        "doc-1",
		"appointment_date": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"type":             "video",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, env.Message)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != "scheduled" {
		t.Fatalf("status = %q", created.Status)
	}

	path := "/appointments/" + created.ID
	if code, _ := api.do(t, http.MethodGet, path, outsider, nil); code != http.StatusForbidden {
		t.Errorf("outsider read: %d", code)
	}
	if code, _ := api.do(t, http.MethodGet, "/appointments/missing", patient, nil); code != http.StatusNotFound {
		t.Errorf("missing: %d", code)
	}
	if code, _ := api.do(t, http.MethodPatch, path, doctor, map[string]string{"status": "in-progress"}); code != http.StatusConflict {
		t.Errorf("scheduled -> in-progress: %d", code)
	}
	if code, _ := api.do(t, http.MethodPatch, path, doctor, map[string]string{"status": "bogus"}); code != http.StatusBadRequest {
		t.Errorf("unknown status: %d", code)
	}
	if code, env := api.do(t, http.MethodPatch, path, doctor, map[string]string{"status": "confirmed"}); code != http.StatusOK {
		t.Fatalf("confirm: %d %s", code, env.Message)
	}

	if code, env := api.do(t, http.MethodPost, "/video-calls/"+created.ID+"/start", doctor, nil); code != http.StatusOK {
		t.Fatalf("start call: %d %s", code, env.Message)
	}
	if code, env := api.do(t, http.MethodPost, "/video-calls/"+created.ID+"/end", doctor, nil); code != http.StatusOK {
		t.Fatalf("end call: %d %s", code, env.Message)
	}

	code, env = api.do(t, http.MethodGet, path+"/history", patient, nil)
	if code != http.StatusOK {
		t.Fatalf("history: %d", code)
	}
	var history struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(env.Data, &history)
	if history.Total < 3 {
		t.Errorf("history total = %d, want at least 3", history.Total)
	}

	code, env = api.do(t, http.MethodGet, "/dashboard/stats", patient, nil)
	if code != http.StatusOK {
		t.Fatalf("stats: %d", code)
	}
	var stats struct {
		TotalAppointments  int `json:"total_appointments"`
		TotalConsultations int `json:"total_consultations"`
	}
	_ = json.Unmarshal(env.Data, &stats)
	if stats.TotalAppointments != 1 || stats.TotalConsultations != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRouter_ConsultationsAreDoctorOnly(t *testing.T) {
	api := newTestAPI(t)
	patient := api.register(t, "pat-1", "patient")
	doctor := api.register(t, "doc-1", "doctor")

	body := map[string]string{"patient_id": "pat-1", "symptoms": "fever"}
	if code, _ := api.do(t, http.MethodPost, "/consultations", patient, body); code != http.StatusForbidden {
		t.Errorf("patient create: %d", code)
	}
	code, env := api.do(t, http.MethodPost, "/consultations", doctor, body)
	if code != http.StatusCreated {
		t.Fatalf("doctor create: %d %s", code, env.Message)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &created)

	if code, _ := api.do(t, http.MethodPost, "/consultations/"+created.ID+"/notes", doctor, map[string]string{"content": "rest"}); code != http.StatusCreated {
		t.Errorf("add note: %d", code)
	}
	if code, _ := api.do(t, http.MethodGet, "/consultations", patient, nil); code != http.StatusOK {
		t.Errorf("patient list: %d", code)
	}
}

func TestRouter_ChatStream(t *testing.T) {
	api := newTestAPI(t)
	u1 := api.register(t, "u1", "patient")
	u2 := api.register(t, "u2", "doctor")

	code, env := api.do(t, http.MethodPost, "/chat/rooms", u1, map[string]string{"participant_id": "u2"})
	if code != http.StatusOK {
		t.Fatalf("create room: %d %s", code, env.Message)
	}
	var room struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &room)

	wsURL := "ws" + strings.TrimPrefix(api.server.URL, "http") + "/api/v1/chat/rooms/" + room.ID + "/stream?access_token=" + u2
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	type snapshot struct {
		Messages []struct {
			Content  string `json:"content"`
			SenderID string `json:"sender_id"`
		} `json:"messages"`
		Total int `json:"total"`
	}
	read := func() snapshot {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var s snapshot
		if err := conn.ReadJSON(&s); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		return s
	}

	if initial := read(); initial.Total != 0 {
		t.Fatalf("initial snapshot = %+v", initial)
	}

	if code, _ := api.do(t, http.MethodPost, "/chat/rooms/"+room.ID+"/messages", u1, map[string]string{"content": "hello"}); code != http.StatusCreated {
		t.Fatalf("send: %d", code)
	}
	got := read()
	if got.Total != 1 || got.Messages[0].Content != "hello" || got.Messages[0].SenderID != "u1" {
		t.Fatalf("snapshot = %+v", got)
	}

	outsider := api.register(t, "u3", "patient")
	resp, err := http.Get(api.server.URL + "/api/v1/chat/rooms/" + room.ID + "/messages?access_token=" + outsider)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("query token on plain request: %d", resp.StatusCode)
	}
	if code, _ := api.do(t, http.MethodGet, "/chat/rooms/"+room.ID+"/messages", outsider, nil); code != http.StatusForbidden {
		t.Errorf("outsider read: %d", code)
	}
}

func TestRouter_StreamRejectsForeignOrigin(t *testing.T) {
	api := newTestAPIWithOrigin(t, "https://app.example")
	token := api.register(t, "pat-1", "patient")
	wsURL := "ws" + strings.TrimPrefix(api.server.URL, "http") + "/api/v1/appointments/stream?access_token=" + token

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("dial from foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign origin response = %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://app.example"}})
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	conn.Close()
}
