package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/Robbie-Ortega/modeling-pipeline-guide/api/rest/routes"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/artifact"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/models"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/repository"
	"github.com/Robbie-Ortega/modeling-pipeline-guide/core/tracking"
)

func newTrackingServer(t *testing.T) *httptest.Server {
	t.Helper()
	blobs, err := artifact.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	svc := tracking.NewService(repository.NewMemoryStore(), blobs)

	r := mux.NewRouter()
	routes.SetupTrackingRoutes(r, svc)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeJSON(t, resp, &body)
	return body.Error.Code
}

func TestTrackingAPIWineQualityScenario(t *testing.T) {
	server := newTrackingServer(t)

	var exp models.Experiment
	resp := postJSON(t, server.URL+"/v1/experiments", map[string]string{"name": "Wine_Quality_Experiment"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create experiment status = %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &exp)

	var run models.Run
	resp = postJSON(t, server.URL+"/v1/runs", map[string]string{"experiment_id": exp.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start run status = %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &run)
	if run.Status != models.RunStatusRunning {
		t.Errorf("new run status = %s, want RUNNING", run.Status)
	}

	base := fmt.Sprintf("%s/v1/runs/%s", server.URL, run.ID)

	resp = postJSON(t, base+"/params", map[string]string{"key": "model_type", "value": "Logistic Regression"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("log param status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, base+"/metrics", map[string]interface{}{"key": "accuracy", "value": 0.61, "step": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("log metric status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, base+"/artifacts", map[string]string{
		"path": "model",
		"data": base64.StdEncoding.EncodeToString([]byte("serialized-model")),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("log artifact status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, base+"/finish", map[string]string{"status": "FINISHED"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finish run status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err := http.Get(base)
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get run status = %d", getResp.StatusCode)
	}
	var detail models.RunDetail
	decodeJSON(t, getResp, &detail)

	if detail.Run.Status != models.RunStatusFinished {
		t.Errorf("run status = %s, want FINISHED", detail.Run.Status)
	}
	if len(detail.Params) != 1 || detail.Params[0].Key != "model_type" || detail.Params[0].Value != "Logistic Regression" {
		t.Errorf("params = %+v", detail.Params)
	}
	if len(detail.Metrics) != 1 || detail.Metrics[0].Key != "accuracy" || detail.Metrics[0].Value != 0.61 {
		t.Errorf("metrics = %+v", detail.Metrics)
	}
	if len(detail.Artifacts) != 1 || detail.Artifacts[0].LogicalPath != "model" {
		t.Errorf("artifacts = %+v", detail.Artifacts)
	}
}

func TestTrackingAPIErrorResponses(t *testing.T) {
	server := newTrackingServer(t)

	// Unknown experiment
	resp := postJSON(t, server.URL+"/v1/runs", map[string]string{"experiment_id": "absent"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("start run on unknown experiment status = %d, want 404", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "not_found" {
		t.Errorf("error code = %q, want not_found", code)
	}

	// Unknown run
	getResp, err := http.Get(server.URL + "/v1/runs/absent")
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("get unknown run status = %d, want 404", getResp.StatusCode)
	}
	getResp.Body.Close()

	// Param conflict and double finish
	var exp models.Experiment
	decodeJSON(t, postJSON(t, server.URL+"/v1/experiments", map[string]string{"name": "errors"}), &exp)
	var run models.Run
	decodeJSON(t, postJSON(t, server.URL+"/v1/runs", map[string]string{"experiment_id": exp.ID}), &run)
	base := fmt.Sprintf("%s/v1/runs/%s", server.URL, run.ID)

	postJSON(t, base+"/params", map[string]string{"key": "lr", "value": "0.01"}).Body.Close()
	resp = postJSON(t, base+"/params", map[string]string{"key": "lr", "value": "0.1"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("param conflict status = %d, want 409", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "param_conflict" {
		t.Errorf("error code = %q, want param_conflict", code)
	}

	postJSON(t, base+"/finish", map[string]string{}).Body.Close()
	resp = postJSON(t, base+"/finish", map[string]string{"status": "KILLED"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double finish status = %d, want 409", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "invalid_state_transition" {
		t.Errorf("error code = %q, want invalid_state_transition", code)
	}

	// Logging on a finished run
	resp = postJSON(t, base+"/metrics", map[string]interface{}{"key": "accuracy", "value": 0.5, "step": 1})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("metric on finished run status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTrackingAPIBadRequests(t *testing.T) {
	server := newTrackingServer(t)

	resp := postJSON(t, server.URL+"/v1/experiments", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty experiment name status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Post(server.URL+"/v1/experiments", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
