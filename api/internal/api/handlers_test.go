package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockK8sClient is a mock implementation of the Kubernetes client
type MockK8sClient struct {
	mock.Mock
}

// MockDatabase is a mock implementation of the database
type MockDatabase struct {
	mock.Mock
}

// MockSyncService is a mock implementation of the sync service
type MockSyncService struct {
	mock.Mock
}

func TestHealth(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	handler := &Handler{}

	// Execute
	handler.Health(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "streamspace-api", response["service"])
}

func TestVersion(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	handler := &Handler{}

	// Execute
	handler.Version(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "v0.1.0", response["version"])
	assert.Equal(t, "v1", response["api"])
}

/*
func TestGetConfig_DefaultValues(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	mockK8s := new(MockK8sClient)
	handler := &Handler{
		k8sClient: mockK8s,
		namespace: "streamspace",
	}

	// Execute
	handler.GetConfig(c)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "streamspace", response["namespace"])
	assert.NotNil(t, response["hibernation"])
	assert.NotNil(t, response["resources"])
}
*/

func TestUpdateConfig_InvalidJSON(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	// Set invalid JSON body
	c.Request = httptest.NewRequest("PATCH", "/api/v1/config", bytes.NewBufferString("invalid json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler := &Handler{}

	// Execute
	handler.UpdateConfig(c)

	// Assert - v2.0-beta: k8sClient is nil, so returns 503 (not 400)
	// When k8sClient is nil, the handler returns ServiceUnavailable before parsing JSON
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Contains(t, response["error"], "Configuration management not available")
}

// Test helper to create a test context with request context
func createTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request = c.Request.WithContext(context.Background())
	return c, w
}

func TestListPods_Success(t *testing.T) {
	// This test would require a more complete mock setup
	// Placeholder for future implementation
	t.Skip("Requires complete Kubernetes client mock")
}

func TestListPods_WithNamespace(t *testing.T) {
	// Test that namespace parameter is correctly used
	t.Skip("Requires complete Kubernetes client mock")
}

func TestGetPodLogs_MissingPodName(t *testing.T) {
	// Setup
	c, w := createTestContext()
	c.Request.URL.RawQuery = "" // No pod parameter

	handler := &Handler{
		namespace: "streamspace",
		// k8sClient is nil - v2.0-beta architecture
	}

	// Execute
	handler.GetPodLogs(c)

	// Assert - v2.0-beta: k8sClient is nil, so returns 503 (not 400)
	// When k8sClient is nil, cluster management endpoints return ServiceUnavailable
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Contains(t, response["error"], "Cluster management not available")
}

// Benchmark tests
func BenchmarkHealth(b *testing.B) {
	gin.SetMode(gin.TestMode)
	handler := &Handler{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		handler.Health(c)
	}
}

func BenchmarkVersion(b *testing.B) {
	gin.SetMode(gin.TestMode)
	handler := &Handler{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		handler.Version(c)
	}
}
