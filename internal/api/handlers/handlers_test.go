package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cyberseed/soul-gateway/internal/api/middleware"
	"github.com/cyberseed/soul-gateway/internal/auth"
	"github.com/cyberseed/soul-gateway/internal/core/llm"
	"github.com/cyberseed/soul-gateway/internal/core/rag"
	"github.com/cyberseed/soul-gateway/internal/core/transcribe"
	"github.com/cyberseed/soul-gateway/internal/service"
	"github.com/cyberseed/soul-gateway/internal/storage/soulstore"
)

// stubGenerator — LLM-заглушка для тестов handlers.
type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, _ string, _ llm.GenerateOptions) (string, error) {
	return "тестовый ответ", nil
}

func (stubGenerator) CheckStatus() llm.Status {
	return llm.Status{Available: true, Provider: "stub"}
}

// testEnv — собранный gateway для тестов: роутер и сервис токенов.
type testEnv struct {
	router *chi.Mux
	tokens *auth.TokenService
}

// newTestEnv собирает роутер с теми же маршрутами и middleware,
// что и боевой сервер.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	dir := t.TempDir()

	store, err := soulstore.New(dir, logger)
	if err != nil {
		t.Fatalf("Ошибка создания хранилища: %v", err)
	}

	tokens := auth.NewTokenService("test-secret", time.Hour, 24*time.Hour)
	verifier := auth.NewDevVerifier(true)
	index := rag.New(dir, logger)
	transcriber := transcribe.NewPlaceholder(logger)
	generator := stubGenerator{}

	uploadSvc := service.NewUploadService(store, 1<<20, logger)
	coreSvc := service.NewCoreService(store, transcriber, index, generator, logger)

	authH := NewAuthHandler(tokens, verifier, logger)
	filesH := NewFilesHandler(uploadSvc, store, logger)
	soulsH := NewSoulsHandler(coreSvc, logger)
	systemH := NewSystemHandler(store, generator, transcriber, index, logger)

	jwtAuth := middleware.NewJWTAuth(tokens, logger)

	router := chi.NewRouter()
	router.Post("/auth/login", authH.Login)
	router.Post("/auth/refresh", authH.Refresh)
	router.Get("/health", systemH.Health)
	router.Get("/status", systemH.SystemStatus)
	router.Get("/status/llm", systemH.LLMStatus)
	router.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware())
		r.Route("/souls/{owner_id}/{soul_id}", func(r chi.Router) {
			r.Post("/upload", filesH.Upload)
			r.Get("/files", filesH.List)
			r.Delete("/files/{filename}", filesH.DeleteFile)
			r.Delete("/data", filesH.DeleteSoulData)
			r.Post("/transcribe", soulsH.Transcribe)
			r.Post("/train", soulsH.Train)
			r.Post("/chat", soulsH.Chat)
		})
		r.Delete("/owners/{owner_id}/data", filesH.DeleteOwnerData)
		r.Get("/status/soul/{owner_id}/{soul_id}", systemH.SoulStatus)
	})

	return &testEnv{router: router, tokens: tokens}
}

// accessToken выпускает access токен для указанного владельца.
func (env *testEnv) accessToken(t *testing.T, ownerID string, role auth.Role) string {
	t.Helper()
	pair, err := env.tokens.IssuePair(ownerID, ownerID, role)
	if err != nil {
		t.Fatalf("Ошибка выпуска токенов: %v", err)
	}
	return pair.AccessToken
}

// do выполняет запрос к тестовому роутеру.
func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// jsonRequest строит запрос с JSON-телом и опциональным токеном.
func jsonRequest(method, target, token string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// multipartUpload строит multipart-запрос с файлами для upload endpoint.
func multipartUpload(t *testing.T, target, token string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("Ошибка создания multipart part: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("Ошибка записи multipart part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Ошибка закрытия multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// TestLoginDevCredentials проверяет вход dev/dev и выпуск пары токенов.
func TestLoginDevCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/auth/login", "", map[string]string{
		"username": "dev",
		"password": "dev",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	var pair auth.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("ожидалась непустая пара токенов")
	}
	if pair.TokenType != "bearer" {
		t.Errorf("ожидался token_type=bearer, получено %q", pair.TokenType)
	}
}

// TestLoginInvalidCredentials проверяет 401 с generic-сообщением.
func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/auth/login", "", map[string]string{
		"username": "dev",
		"password": "wrong",
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидалось 401, получено %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Не удалось проверить учётные данные") {
		t.Errorf("ожидалось generic-сообщение, получено: %s", rec.Body.String())
	}
}

// TestRefreshFlow проверяет выпуск новой пары по refresh токену
// и отказ при подаче access токена вместо refresh.
func TestRefreshFlow(t *testing.T) {
	env := newTestEnv(t)

	pair, err := env.tokens.IssuePair("dev", "dev", auth.RoleOwner)
	if err != nil {
		t.Fatalf("Ошибка выпуска токенов: %v", err)
	}

	rec := env.do(jsonRequest(http.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	// Access токен вместо refresh — 401
	rec = env.do(jsonRequest(http.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": pair.AccessToken,
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("access токен вместо refresh: ожидалось 401, получено %d", rec.Code)
	}
}

// TestUploadListDeleteFlow проверяет полный цикл: upload → list →
// delete → list пустой.
func TestUploadListDeleteFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	// Upload двух файлов
	rec := env.do(multipartUpload(t, "/souls/alice/soul-1/upload", token, map[string]string{
		"a.txt": "первый",
		"b.txt": "второй",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	var uploadResp struct {
		Count     int   `json:"count"`
		TotalSize int64 `json:"total_size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploadResp); err != nil {
		t.Fatalf("Ошибка разбора ответа upload: %v", err)
	}
	if uploadResp.Count != 2 {
		t.Errorf("ожидалось 2 файла, получено %d", uploadResp.Count)
	}

	// List с фильтром по категории
	rec = env.do(jsonRequest(http.MethodGet, "/souls/alice/soul-1/files?category=uploads", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: ожидалось 200, получено %d", rec.Code)
	}
	var listResp struct {
		Files []fileInfoResponse `json:"files"`
		Count int                `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("Ошибка разбора ответа list: %v", err)
	}
	if listResp.Count != 2 {
		t.Fatalf("ожидалось 2 файла в списке, получено %d", listResp.Count)
	}
	if listResp.Files[0].Filename != "a.txt" {
		t.Errorf("ожидалась сортировка по имени, первый файл %q", listResp.Files[0].Filename)
	}

	// Delete первого файла
	rec = env.do(jsonRequest(http.MethodDelete, "/souls/alice/soul-1/files/a.txt?category=uploads", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	// Повторное удаление — 404
	rec = env.do(jsonRequest(http.MethodDelete, "/souls/alice/soul-1/files/a.txt?category=uploads", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("повторное удаление: ожидалось 404, получено %d", rec.Code)
	}
}

// TestOwnerIsolation проверяет, что владелец не видит чужое поддерево:
// 403, а не 404, независимо от существования данных.
func TestOwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.accessToken(t, "alice", auth.RoleOwner)
	bobToken := env.accessToken(t, "bob", auth.RoleOwner)

	// Файл alice
	rec := env.do(multipartUpload(t, "/souls/alice/soul-1/upload", aliceToken, map[string]string{
		"secret.txt": "данные alice",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: ожидалось 200, получено %d", rec.Code)
	}

	// bob пытается читать данные alice — 403
	rec = env.do(jsonRequest(http.MethodGet, "/souls/alice/soul-1/files", bobToken, nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("чужой list: ожидалось 403, получено %d", rec.Code)
	}

	// 403 и для несуществующего владельца — отказ до обращения к хранилищу
	rec = env.do(jsonRequest(http.MethodGet, "/souls/nobody/soul-x/files", bobToken, nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("несуществующий владелец: ожидалось 403, получено %d", rec.Code)
	}

	// admin проходит проверку владельца
	adminToken := env.accessToken(t, "root", auth.RoleAdmin)
	rec = env.do(jsonRequest(http.MethodGet, "/souls/alice/soul-1/files", adminToken, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("admin list: ожидалось 200, получено %d", rec.Code)
	}
}

// TestProtectedWithoutToken проверяет 401 без токена.
func TestProtectedWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodGet, "/souls/alice/soul-1/files", "", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидалось 401, получено %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("ожидался заголовок WWW-Authenticate: Bearer")
	}
}

// TestDeleteSoulAndOwnerData проверяет рекурсивное удаление и 404
// для отсутствующих поддеревьев.
func TestDeleteSoulAndOwnerData(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(multipartUpload(t, "/souls/alice/soul-1/upload", token, map[string]string{
		"a.txt": "данные",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: ожидалось 200, получено %d", rec.Code)
	}

	rec = env.do(jsonRequest(http.MethodDelete, "/souls/alice/soul-1/data", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete soul: ожидалось 200, получено %d", rec.Code)
	}

	rec = env.do(jsonRequest(http.MethodDelete, "/souls/alice/soul-1/data", token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("повторный delete soul: ожидалось 404, получено %d", rec.Code)
	}

	// Данные владельца
	rec = env.do(multipartUpload(t, "/souls/alice/soul-2/upload", token, map[string]string{
		"b.txt": "данные",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: ожидалось 200, получено %d", rec.Code)
	}

	rec = env.do(jsonRequest(http.MethodDelete, "/owners/alice/data", token, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("delete owner: ожидалось 200, получено %d", rec.Code)
	}
}

// TestTrainAndChat проверяет построение индекса и chat через HTTP.
func TestTrainAndChat(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(jsonRequest(http.MethodPost, "/souls/alice/soul-1/train", token, map[string]any{}))
	if rec.Code != http.StatusOK {
		t.Fatalf("train: ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(jsonRequest(http.MethodPost, "/souls/alice/soul-1/chat", token, map[string]any{
		"query":           "вопрос",
		"include_sources": true,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	var chatResp struct {
		ResponseText     string `json:"response_text"`
		HasKnowledgeBase bool   `json:"has_knowledge_base"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &chatResp); err != nil {
		t.Fatalf("Ошибка разбора ответа chat: %v", err)
	}
	if chatResp.ResponseText != "тестовый ответ" {
		t.Errorf("неожиданный ответ: %q", chatResp.ResponseText)
	}
	if !chatResp.HasKnowledgeBase {
		t.Error("ожидалось has_knowledge_base=true после train")
	}
}

// TestTranscribeEndpoint проверяет транскрипцию загруженного аудиофайла.
func TestTranscribeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(multipartUpload(t, "/souls/alice/soul-1/upload", token, map[string]string{
		"meeting.mp3": "аудио",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: ожидалось 200, получено %d", rec.Code)
	}

	rec = env.do(jsonRequest(http.MethodPost, "/souls/alice/soul-1/transcribe", token, map[string]string{
		"filename": "meeting.mp3",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("transcribe: ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	var resp transcribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if resp.TranscriptFilename != "meeting_transcript.txt" {
		t.Errorf("ожидалось имя meeting_transcript.txt, получено %q", resp.TranscriptFilename)
	}

	// Транскрипт виден в категории transcripts
	rec = env.do(jsonRequest(http.MethodGet, "/souls/alice/soul-1/files?category=transcripts", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list transcripts: ожидалось 200, получено %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "meeting_transcript.txt") {
		t.Error("транскрипт не найден в категории transcripts")
	}
}

// TestSoulStatus проверяет статистику soul: все три категории
// присутствуют всегда, включая пустые.
func TestSoulStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(multipartUpload(t, "/souls/alice/soul-1/upload", token, map[string]string{
		"a.txt": "0123456789",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: ожидалось 200, получено %d", rec.Code)
	}

	rec = env.do(jsonRequest(http.MethodGet, "/status/soul/alice/soul-1", token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("soul status: ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OwnerID string `json:"owner_id"`
		Storage map[string]struct {
			Count     int   `json:"count"`
			TotalSize int64 `json:"total_size"`
		} `json:"storage"`
		RAG struct {
			HasIndex bool `json:"has_index"`
		} `json:"rag"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if len(resp.Storage) != 3 {
		t.Errorf("ожидались все 3 категории в статистике, получено %d", len(resp.Storage))
	}
	if resp.Storage["uploads"].Count != 1 || resp.Storage["uploads"].TotalSize != 10 {
		t.Errorf("uploads: ожидалось count=1 size=10, получено %+v", resp.Storage["uploads"])
	}
	if resp.RAG.HasIndex {
		t.Error("ожидалось has_index=false до train")
	}
}

// TestListInvalidCategory проверяет 400 для категории вне множества.
func TestListInvalidCategory(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(jsonRequest(http.MethodGet, "/souls/alice/soul-1/files?category=archive", token, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидалось 400, получено %d", rec.Code)
	}
}

// TestHealthAndStatusPublic проверяет публичные endpoints без токена.
func TestHealthAndStatusPublic(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/health", "/status", "/status/llm"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: ожидалось 200, получено %d", target, rec.Code)
		}
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/status", nil))
	var resp systemStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Ошибка разбора ответа /status: %v", err)
	}
	if resp.Status != "operational" {
		t.Errorf("ожидался статус operational, получено %q", resp.Status)
	}
	if !resp.Storage.Available || !resp.Storage.Writable {
		t.Errorf("ожидалось доступное хранилище: %+v", resp.Storage)
	}
	if !resp.LLM.Available {
		t.Error("ожидался доступный LLM (stub)")
	}
}

// TestUploadFileTooLargeHTTP проверяет 413 через HTTP-слой.
func TestUploadFileTooLargeHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	big := strings.Repeat("x", (1<<20)+1)
	rec := env.do(multipartUpload(t, "/souls/alice/soul-1/upload", token, map[string]string{
		"big.bin": big,
	}))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("ожидалось 413, получено %d", rec.Code)
	}
}

// TestDeleteFileRequiresCategory проверяет обязательность параметра category.
func TestDeleteFileRequiresCategory(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(jsonRequest(http.MethodDelete, "/souls/alice/soul-1/files/a.txt", token, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидалось 400, получено %d", rec.Code)
	}
}

// TestExpiredTokenRejected проверяет отказ по истёкшему access токену
// с тем же generic-сообщением, что и у прочих отказов.
func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	expired := auth.NewTokenService("test-secret", -time.Minute, 24*time.Hour)
	pair, err := expired.IssuePair("alice", "alice", auth.RoleOwner)
	if err != nil {
		t.Fatalf("Ошибка выпуска токенов: %v", err)
	}

	rec := env.do(jsonRequest(http.MethodGet, "/souls/alice/soul-1/files", pair.AccessToken, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидалось 401, получено %d", rec.Code)
	}

	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if resp.Error.Message != "Не удалось проверить учётные данные" {
		t.Errorf("ожидалось generic-сообщение, получено %q", resp.Error.Message)
	}
}

// TestUploadRejectsTraversalFilename проверяет отказ на имя с traversal
// через HTTP-слой.
func TestUploadRejectsTraversalFilename(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(multipartUpload(t, "/souls/alice/soul-1/upload", token, map[string]string{
		"..": "побег",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидалось 400, получено %d: %s", rec.Code, rec.Body.String())
	}
}

// TestTraversalInPathIDs проверяет, что ".." в сегментах owner_id/soul_id
// URL не резолвится вверх по дереву хранения. Роутер пропускает ".."
// как обычный сегмент, поэтому защита обязана срабатывать ниже —
// запрос отклоняется с 400, данные других владельцев остаются целы.
func TestTraversalInPathIDs(t *testing.T) {
	env := newTestEnv(t)

	victimToken := env.accessToken(t, "victim", auth.RoleOwner)
	rec := env.do(multipartUpload(t, "/souls/victim/s1/upload", victimToken, map[string]string{
		"secret.txt": "чужие данные",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("загрузка victim: ожидалось 200, получено %d: %s", rec.Code, rec.Body.String())
	}

	acmeToken := env.accessToken(t, "acme", auth.RoleOwner)

	// soul_id = ".." резолвился бы в корень дерева хранения
	rec = env.do(jsonRequest(http.MethodDelete, "/souls/acme/../data", acmeToken, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("DELETE с traversal soul_id: ожидалось 400, получено %d: %s", rec.Code, rec.Body.String())
	}

	// Чтение и запись с traversal в сегментах тоже отклоняются
	rec = env.do(jsonRequest(http.MethodGet, "/souls/acme/../files", acmeToken, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET files с traversal soul_id: ожидалось 400, получено %d", rec.Code)
	}
	rec = env.do(multipartUpload(t, "/souls/acme/../upload", acmeToken, map[string]string{
		"x.txt": "x",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("upload с traversal soul_id: ожидалось 400, получено %d", rec.Code)
	}

	// Данные victim не пострадали
	rec = env.do(jsonRequest(http.MethodGet, "/souls/victim/s1/files", victimToken, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("список victim: ожидалось 200, получено %d", rec.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("данные victim пострадали: ожидался 1 файл, получено %d", list.Count)
	}
}

// TestOversizeOverwriteKeepsExistingHTTP проверяет, что отклонённая
// по размеру перезапись не уничтожает ранее загруженный файл.
func TestOversizeOverwriteKeepsExistingHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.accessToken(t, "alice", auth.RoleOwner)

	rec := env.do(multipartUpload(t, "/souls/alice/s1/upload", token, map[string]string{
		"doc.txt": "исходник",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("первая загрузка: ожидалось 200, получено %d", rec.Code)
	}

	big := strings.Repeat("x", (1<<20)+1)
	rec = env.do(multipartUpload(t, "/souls/alice/s1/upload", token, map[string]string{
		"doc.txt": big,
	}))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("ожидалось 413, получено %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(jsonRequest(http.MethodGet, "/souls/alice/s1/files", token, nil))
	var list struct {
		Files []struct {
			Filename string `json:"filename"`
			Size     int64  `json:"size"`
		} `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if len(list.Files) != 1 || list.Files[0].Filename != "doc.txt" {
		t.Fatalf("прежний файл пропал: %+v", list.Files)
	}
	if want := int64(len("исходник")); list.Files[0].Size != want {
		t.Errorf("прежнее содержимое повреждено: размер %d, ожидалось %d", list.Files[0].Size, want)
	}
}
