// chapictl is a smoke-test client for the relay: it drives the text and
// voice endpoints from the command line without robot hardware.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type options struct {
	baseURL   string
	sessionID string
	message   string
	audioPath string
	outPath   string
	timeout   time.Duration
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chapictl: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "chapictl: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "relay base URL")
	flag.StringVar(&opts.sessionID, "session", "", "session id (empty uses the shared default session)")
	flag.StringVar(&opts.message, "message", "", "text message for /api/text")
	flag.StringVar(&opts.audioPath, "audio", "", "audio file for /api/voice")
	flag.StringVar(&opts.outPath, "out", "reply.wav", "where to write the voice reply")
	flag.DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")
	flag.Parse()

	if opts.message == "" && opts.audioPath == "" {
		return options{}, fmt.Errorf("provide -message or -audio")
	}
	if opts.message != "" && opts.audioPath != "" {
		return options{}, fmt.Errorf("-message and -audio are mutually exclusive")
	}
	opts.baseURL = strings.TrimRight(opts.baseURL, "/")
	return opts, nil
}

func run(opts options) error {
	client := &http.Client{Timeout: opts.timeout}
	if opts.message != "" {
		return sendText(client, opts)
	}
	return sendVoice(client, opts)
}

func sendText(client *http.Client, opts options) error {
	payload := map[string]string{"message": opts.message}
	if opts.sessionID != "" {
		payload["session_id"] = opts.sessionID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	res, err := client.Post(opts.baseURL+"/api/text", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("text request failed: %s", readError(res))
	}

	var parsed struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	fmt.Println(parsed.Reply)
	return nil
}

func sendVoice(client *http.Client, opts options) error {
	audio, err := os.ReadFile(opts.audioPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", filepath.Base(opts.audioPath))
	if err != nil {
		return err
	}
	if _, err := fw.Write(audio); err != nil {
		return err
	}
	if opts.sessionID != "" {
		if err := mw.WriteField("session_id", opts.sessionID); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	res, err := client.Post(opts.baseURL+"/api/voice", mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("voice request failed: %s", readError(res))
	}

	out, err := os.Create(opts.outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	n, err := io.Copy(out, res.Body)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", n, opts.outPath)
	return nil
}

func readError(res *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	text := strings.TrimSpace(string(body))
	if text == "" {
		return res.Status
	}
	return res.Status + ": " + text
}
