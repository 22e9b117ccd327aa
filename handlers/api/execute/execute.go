package execute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type (
	// RunRequest is the client-facing shape of POST /run. Field names
	// follow the judge service's own submission schema.
	RunRequest struct {
		LanguageID int    `json:"language_id"`
		SourceCode string `json:"source_code"`
		Stdin      string `json:"stdin"`
	}

	// RunResponse normalizes the judge's result to the triple clients
	// care about.
	RunResponse struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Status string `json:"status"`
	}

	submission struct {
		LanguageID int    `json:"language_id"`
		SourceCode string `json:"source_code"`
		Stdin      string `json:"stdin"`
	}

	judgeStatus struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	}

	judgeResult struct {
		Stdout *string      `json:"stdout"`
		Stderr *string      `json:"stderr"`
		Status *judgeStatus `json:"status"`
	}

	// Service forwards submissions to the external judge. It holds no
	// state besides its HTTP client; concurrent requests are
	// independent outbound calls.
	Service struct {
		baseURL string
		apiKey  string
		apiHost string
		client  *http.Client
	}
)

// NewService builds the execution proxy. The client timeout bounds the
// entire upstream round trip, including the judge's server-side wait.
func NewService(baseURL, apiKey, apiHost string, timeout time.Duration) *Service {
	if apiKey == "" {
		logrus.Warn("JUDGE0_API_KEY is not set, code execution will not work")
	}
	return &Service{
		baseURL: baseURL,
		apiKey:  apiKey,
		apiHost: apiHost,
		client:  &http.Client{Timeout: timeout},
	}
}

// HandleRun proxies one code-execution request. All upstream failure
// detail stays in the server log; clients only ever see a generic
// error body.
func HandleRun(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		log := logrus.WithFields(logrus.Fields{
			"run_id":      ulid.Make().String(),
			"language_id": req.LanguageID,
			"code_length": len(req.SourceCode),
		})
		log.Info("Forwarding execution request")

		result, err := svc.execute(r, req)
		if err != nil {
			log.WithError(err).Error("Execution failed")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Execution failed"})
			return
		}

		log.WithField("status", result.Status).Info("Execution completed")
		render.JSON(w, r, result)
	}
}

func (s *Service) execute(r *http.Request, req RunRequest) (*RunResponse, error) {
	body, err := json.Marshal(submission{
		LanguageID: req.LanguageID,
		SourceCode: req.SourceCode,
		Stdin:      req.Stdin,
	})
	if err != nil {
		return nil, err
	}

	// wait=true makes the judge block until the run finishes, so one
	// round trip carries the full result.
	proxyURL := s.baseURL + "?base64_encoded=false&wait=true"
	proxyReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, proxyURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	proxyReq.Header.Set("X-RapidAPI-Host", s.apiHost)
	proxyReq.Header.Set("X-RapidAPI-Key", s.apiKey)
	proxyReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(proxyReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logrus.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(detail),
		}).Error("Judge service returned an error")
		return nil, &upstreamError{statusCode: resp.StatusCode}
	}

	var result judgeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	status := "Unknown Status"
	if result.Status != nil && result.Status.Description != "" {
		status = result.Status.Description
	}
	return &RunResponse{
		Stdout: stringOrEmpty(result.Stdout),
		Stderr: stringOrEmpty(result.Stderr),
		Status: status,
	}, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type upstreamError struct {
	statusCode int
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("judge service returned status %d", e.statusCode)
}
