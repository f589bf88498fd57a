package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the weatherly API")
	watch := flag.Bool("watch", false, "Stream dashboard updates after the search")
	flag.Parse()

	fmt.Println("Weatherly API Client")
	fmt.Println("====================")

	client := &http.Client{Timeout: 15 * time.Second}

	// Check the service and its mode
	var health map[string]interface{}
	if err := getJSON(client, *baseURL+"/api/health", &health); err != nil {
		fmt.Printf("Error checking health: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Service status: %v (mode: %v)\n", health["status"], health["mode"])

	city := strings.Join(flag.Args(), " ")
	if city == "" {
		city = "London"
	}

	fmt.Printf("\nSearching weather for %s...\n", city)
	var state map[string]interface{}
	if err := getJSON(client, *baseURL+"/api/weather?city="+url.QueryEscape(city), &state); err != nil {
		fmt.Printf("Error searching: %v\n", err)
		os.Exit(1)
	}

	prettyJSON, _ := json.MarshalIndent(state, "", "  ")
	fmt.Printf("\nDashboard for %s:\n%s\n", city, string(prettyJSON))

	var hist map[string]interface{}
	if err := getJSON(client, *baseURL+"/api/history", &hist); err == nil {
		fmt.Printf("\nRecent searches: %v\n", hist["count"])
	}

	if *watch {
		if err := stream(*baseURL); err != nil {
			fmt.Printf("Stream ended: %v\n", err)
			os.Exit(1)
		}
	}
}

// getJSON fetches url and decodes the body; API errors come back as {"error": msg}
func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// stream prints every state pushed by the server until the connection drops
func stream(baseURL string) error {
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Println("\nWatching for updates (Ctrl+C to stop)...")
	for {
		var state struct {
			Query   string `json:"query"`
			Loading bool   `json:"loading"`
			Error   string `json:"error"`
		}
		if err := conn.ReadJSON(&state); err != nil {
			return err
		}
		switch {
		case state.Loading:
			fmt.Println("loading...")
		case state.Error != "":
			fmt.Printf("error: %s\n", state.Error)
		default:
			fmt.Printf("showing %s\n", state.Query)
		}
	}
}
