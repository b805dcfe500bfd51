package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mikepea/journal/pkg/journal/admin"
	"github.com/mikepea/journal/pkg/journal/auth"
	"github.com/mikepea/journal/pkg/journal/database"
	"github.com/mikepea/journal/pkg/journal/entries"
	"github.com/mikepea/journal/pkg/journal/importexport"
	"github.com/mikepea/journal/pkg/journal/logging"
	"github.com/mikepea/journal/pkg/journal/models"
	"github.com/mikepea/journal/pkg/journal/tags"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.DriverSQLite, ":memory:", logger.Silent)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed admin, as cmd/journal-server does on first start
	if _, err := auth.CreateUser(db, auth.NewUser{
		Username: "test_user",
		Email:    "example@mail.com",
		Password: "testpassword",
		Admin:    true,
	}); err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}

	return db
}

// setupFullServer creates a Gin engine with all routes registered
// This mirrors the setup in cmd/journal-server/main.go
func setupFullServer(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	r := gin.New()
	r.Use(logging.Middleware(log), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "journal",
			})
		})

		authHandler := auth.NewHandler(db, log)
		authHandler.RegisterRoutes(api.Group("/auth"))

		entriesHandler := entries.NewHandler(db, log)
		entriesHandler.RegisterRoutes(api)

		tagsHandler := tags.NewHandler(db, log)
		tagsHandler.RegisterRoutes(api)

		importExportHandler := importexport.NewHandler(db, log)
		importExportHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		adminHandler := admin.NewHandler(db, log)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

func doRequest(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func login(t *testing.T, router *gin.Engine, email, password string) string {
	resp := doRequest(router, "POST", "/api/auth/login", auth.LoginRequest{Email: email, Password: password}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("Login as %s failed: %d %s", email, resp.Code, resp.Body.String())
	}
	var body auth.AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &body)
	return body.Token
}

// TestServerStartup verifies that all routes can be registered without conflicts
func TestServerStartup(t *testing.T) {
	db := setupTestDB(t)

	// This will panic if there are route conflicts
	router := setupFullServer(db)

	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

// TestHealthEndpoint verifies the health endpoints respond correctly
func TestHealthEndpoint(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	for _, path := range []string{"/health", "/api/health"} {
		req, _ := http.NewRequest("GET", path, nil)
		resp := httptest.NewRecorder()

		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Errorf("Expected status 200 for %s, got %d", path, resp.Code)
		}
	}
}

// TestProtectedEndpointsRequireAuth verifies that protected endpoints return 401 without auth
func TestProtectedEndpointsRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/entries"},
		{"PUT", "/api/entries/some-entry"},
		{"DELETE", "/api/entries/some-entry"},
		{"POST", "/api/tags"},
		{"POST", "/api/entries/some-entry/tags"},
		{"POST", "/api/entries/some-entry/tags/remove"},
		{"GET", "/api/export"},
		{"POST", "/api/import"},
		{"GET", "/api/admin/stats"},
		{"GET", "/api/auth/me"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestPublicEndpointsNoAuth verifies that public endpoints don't require auth
func TestPublicEndpointsNoAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"GET", "/api/entries", http.StatusOK},
		{"GET", "/api/tags", http.StatusOK},
		{"GET", "/api/entries/missing", http.StatusNotFound},
		{"GET", "/api/users/nobody/entries", http.StatusNotFound},
		{"POST", "/api/auth/register", http.StatusBadRequest}, // Bad request (no body), but not 401
		{"POST", "/api/auth/login", http.StatusBadRequest},    // Bad request (no body), but not 401
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestNonAdminCannotUseAdminRoutes verifies the admin flag is enforced
func TestNonAdminCannotUseAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	resp := doRequest(router, "POST", "/api/auth/register", auth.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret1", Password2: "secret1",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", resp.Code, resp.Body.String())
	}
	token := login(t, router, "alice@example.com", "secret1")

	resp = doRequest(router, "GET", "/api/admin/stats", nil, token)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

// TestJournalFlow walks through registering, writing entries and tagging
// them, then checks the result from the admin view.
func TestJournalFlow(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	resp := doRequest(router, "POST", "/api/auth/register", auth.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret1", Password2: "secret1",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", resp.Code, resp.Body.String())
	}
	token := login(t, router, "alice@example.com", "secret1")

	// Two entries with the same title get distinct slugs
	entry := entries.EntryRequest{
		Title:     "Learning Go",
		Duration:  60,
		Content:   "interfaces",
		Resources: "Effective Go",
		CreatedAt: "03/15/2024",
	}
	var created entries.EntryResponse
	for _, want := range []string{"learning-go", "learning-go1"} {
		resp = doRequest(router, "POST", "/api/entries", entry, token)
		if resp.Code != http.StatusCreated {
			t.Fatalf("Create entry failed: %d %s", resp.Code, resp.Body.String())
		}
		json.Unmarshal(resp.Body.Bytes(), &created)
		if created.Slug != want {
			t.Errorf("Expected slug %s, got %s", want, created.Slug)
		}
	}

	// Three tags
	for _, name := range []string{"golang", "basics", "concurrency"} {
		resp = doRequest(router, "POST", "/api/tags", tags.CreateTagRequest{Name: name}, token)
		if resp.Code != http.StatusCreated {
			t.Fatalf("Create tag failed: %d %s", resp.Code, resp.Body.String())
		}
	}

	// {1,2} then apply {2,3} ends as {1,2,3}
	doRequest(router, "POST", "/api/entries/learning-go/tags", tags.TagSelectionRequest{TagIDs: []uint{1, 2}}, token)
	resp = doRequest(router, "POST", "/api/entries/learning-go/tags", tags.TagSelectionRequest{TagIDs: []uint{2, 3}}, token)
	var reconciled tags.ReconcileResponse
	json.Unmarshal(resp.Body.Bytes(), &reconciled)
	if reconciled.Changed != 1 || len(reconciled.Tags) != 3 {
		t.Errorf("Expected 1 added and 3 tags, got %+v", reconciled)
	}

	// Remove {1,3} leaves {2}
	resp = doRequest(router, "POST", "/api/entries/learning-go/tags/remove", tags.TagSelectionRequest{TagIDs: []uint{1, 3}}, token)
	json.Unmarshal(resp.Body.Bytes(), &reconciled)
	if len(reconciled.Tags) != 1 || reconciled.Tags[0].ID != 2 {
		t.Errorf("Expected only tag 2 left, got %+v", reconciled.Tags)
	}

	// Editing the title keeps the slug
	entry.Title = "Learning Go, revisited"
	resp = doRequest(router, "PUT", "/api/entries/learning-go", entry, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("Update failed: %d %s", resp.Code, resp.Body.String())
	}
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.Slug != "learning-go" {
		t.Errorf("Expected slug unchanged, got %s", created.Slug)
	}

	// Author view
	resp = doRequest(router, "GET", "/api/users/alice/entries", nil, "")
	var list []entries.EntryResponse
	json.Unmarshal(resp.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Errorf("Expected 2 entries for alice, got %d", len(list))
	}

	// Seeded admin sees the totals
	adminToken := login(t, router, "example@mail.com", "testpassword")
	resp = doRequest(router, "GET", "/api/admin/stats", nil, adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("Stats failed: %d %s", resp.Code, resp.Body.String())
	}
	var stats admin.StatsResponse
	json.Unmarshal(resp.Body.Bytes(), &stats)
	if stats.TotalUsers != 2 || stats.TotalEntries != 2 || stats.TotalTags != 3 || stats.TotalAssociations != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TotalDuration != 120 {
		t.Errorf("Expected 120 minutes, got %d", stats.TotalDuration)
	}

	// Deleting an entry removes its tag rows
	resp = doRequest(router, "DELETE", "/api/entries/learning-go", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("Delete failed: %d %s", resp.Code, resp.Body.String())
	}
	var assoc int64
	db.Model(&models.EntryTag{}).Count(&assoc)
	if assoc != 0 {
		t.Errorf("Expected no entry tags after delete, got %d", assoc)
	}
}
