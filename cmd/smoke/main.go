package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
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

	client := &http.Client{} // LLM calls can take a while, no timeout
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func main() {
	color.Cyan("🚀 Starting Mediation Flow Smoke Test\n")

	// 1. Create a session with three participants
	color.Yellow("\n[1] Create Session")
	resp, body, err := sendRequest("POST", "/session", map[string]interface{}{
		"name":     "Flat share cleaning rota",
		"is_secret": false,
		"participants": []map[string]string{
			{"name": "Ana", "contact_type": "email", "email": "ana@example.com"},
			{"name": "Ben", "contact_type": "email", "email": "ben@example.com"},
			{"name": "Cleo", "contact_type": "phone", "phone": "+4915112345678"},
		},
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	var env envelope
	json.Unmarshal(body, &env)
	var created struct {
		SessionId string `json:"session_id"`
	}
	json.Unmarshal(env.Data, &created)
	color.Green("Session: %s", created.SessionId)

	// The secret keys are normally delivered by email/SMS. For the smoke
	// test, read them off the file store.
	keys := readKeysFromStore(created.SessionId)
	if len(keys) != 3 {
		color.Red("Expected 3 secret keys in the data dir, got %d", len(keys))
		os.Exit(1)
	}

	// 2. Submit perspectives. The third submission completes the session.
	perspectives := []string{
		"I feel like I am the only one who ever cleans the kitchen.",
		"I do clean, but I work late shifts and the schedule ignores that.",
		"Honestly I did not know we had a schedule at all.",
	}
	for i, key := range keys {
		color.Yellow("\n[2.%d] Submit Perspective", i+1)
		resp, body, err = sendRequest("POST", "/perspective", map[string]string{
			"session_id":  created.SessionId,
			"secret_key":  key,
			"perspective": perspectives[i],
		})
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		json.Unmarshal(body, &env)
		color.Green("Status: %s (%s)", resp.Status, env.Status)
	}
	if env.Status != "complete" {
		color.Red("Expected final submission to report 'complete', got %q", env.Status)
		os.Exit(1)
	}

	// 3. Poll participation until the mediation is done
	color.Yellow("\n[3] Poll for Answers")
	for attempt := 0; attempt < 60; attempt++ {
		resp, body, err = sendRequest("GET", fmt.Sprintf("/session/%s/participation/%s", created.SessionId, keys[0]), nil)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		json.Unmarshal(body, &env)

		var participation map[string]interface{}
		json.Unmarshal(env.Data, &participation)
		if participation["mediation_status"] == "done" {
			color.Green("Mediation done after %d polls", attempt+1)
			prettyPrint(participation)
			color.Cyan("\n✅ Smoke test passed")
			return
		}
		time.Sleep(2 * time.Second)
	}
	color.Red("Timed out waiting for mediation to finish")
	os.Exit(1)
}

// readKeysFromStore lists the participant key directories under the file
// blob store. Only works with STORE_BACKEND=file.
func readKeysFromStore(sessionId string) []string {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	entries, err := os.ReadDir(fmt.Sprintf("%s/sessions/%s/participants", dataDir, sessionId))
	if err != nil {
		color.Red("Failed to read participant keys: %v", err)
		os.Exit(1)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	return keys
}
