package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

var baseURL = envOr("SMOKE_BASE_URL", "http://localhost:8000")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Pretty print JSON helper
func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // LLM calls can be slow, no timeout
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("Starting chat API smoke test\n")

	// 1. Health check
	color.Yellow("\n1. Health check")
	resp, body, err := sendRequest("GET", "/health", "", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 2. Issue a token (requires this host to be on AUTHORIZED_TOKEN_IPS)
	color.Yellow("\n2. Issue token")
	userId := envOr("SMOKE_USER_ID", "smoke-test-user")
	resp, body, err = sendRequest("POST", "/api/auth/v1/token", "", map[string]string{"user_id": userId})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	var tokenResp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.Data.Token == "" {
		color.Red("No token in response, aborting")
		os.Exit(1)
	}
	token := tokenResp.Data.Token

	// 3. List models
	color.Yellow("\n3. List models")
	resp, body, err = sendRequest("GET", "/api/chat/v1/models", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 4. Analyze a prompt with injected details
	color.Yellow("\n4. Analyze with details")
	resp, body, err = sendRequest("POST", "/api/chat/v1/analyze", token, map[string]interface{}{
		"prompt": "Which metric looks unhealthy?",
		"details": []map[string]interface{}{
			{"metric": "latency_p99_ms", "value": 870},
			{"metric": "error_rate", "value": 0.02},
		},
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 5. Ask a question
	color.Yellow("\n5. Ask a question")
	resp, body, err = sendRequest("POST", "/api/chat/v1/query", token, map[string]string{
		"question": "Hello! What can you help me with?",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 6. Fetch history
	color.Yellow("\n6. Fetch history")
	resp, body, err = sendRequest("GET", "/api/chat/v1/history", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 7. Clear history
	color.Yellow("\n7. Clear history")
	resp, body, err = sendRequest("DELETE", "/api/chat/v1/history", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	color.Cyan("\nSmoke test finished")
}
