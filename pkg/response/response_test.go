package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("响应体不是合法 JSON: %v", err)
	}
	return body
}

func TestCreated_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Created(c, gin.H{"id": "duty-1"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}
	if body["responseCode"] != float64(http.StatusCreated) {
		t.Errorf("expected responseCode=201, got %v", body["responseCode"])
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok || data["id"] != "duty-1" {
		t.Errorf("expected data.id=duty-1, got %v", body["data"])
	}
}

func TestNotFound_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	NotFound(c, 20001, "人员不存在")

	body := decode(t, w)
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	if body["responseCode"] != float64(http.StatusNotFound) {
		t.Errorf("expected responseCode=404, got %v", body["responseCode"])
	}
	if body["code"] != float64(20001) {
		t.Errorf("expected code=20001, got %v", body["code"])
	}
	if _, present := body["data"]; present {
		t.Error("error envelope should omit data")
	}
}

func TestOKPage_Pagination(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OKPage(c, []string{"a", "b"}, 41, 2, 20)

	body := decode(t, w)
	data := body["data"].(map[string]interface{})
	p := data["pagination"].(map[string]interface{})
	if p["total_pages"] != float64(3) {
		t.Errorf("expected total_pages=3, got %v", p["total_pages"])
	}
	if p["total"] != float64(41) {
		t.Errorf("expected total=41, got %v", p["total"])
	}
}
