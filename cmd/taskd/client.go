package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// clientSpec mirrors httpapi's unexported wireSpec shape for the CLI
// subcommands, which only ever talk to the daemon over its JSON boundary
// and so do not need to share the package-internal type.
type clientSpec struct {
	Slot              string   `json:"slot"`
	Command           string   `json:"command"`
	Args              []string `json:"args,omitempty"`
	Cwd               string   `json:"cwd,omitempty"`
	FailOnNonZero     bool     `json:"fail_on_non_zero,omitempty"`
	TimeoutMS         uint64   `json:"timeout_ms"`
	RestartKind       string   `json:"restart_kind"`
	RestartIntervalMS *uint64  `json:"restart_interval_ms,omitempty"`
	BackoffFirstMS    uint64   `json:"backoff_first_ms,omitempty"`
	BackoffMaxMS      uint64   `json:"backoff_max_ms,omitempty"`
	BackoffFactor     float64  `json:"backoff_factor,omitempty"`
	BackoffJitter     string   `json:"backoff_jitter,omitempty"`
	Admission         string   `json:"admission"`
}

func postJSON(addr, path string, body any) ([]byte, int, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	resp, err := http.Post("http://"+addr+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return out, resp.StatusCode, err
}

func getJSON(addr, path string) ([]byte, int, error) {
	resp, err := http.Get("http://" + addr + path)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return out, resp.StatusCode, err
}

func printResponse(out []byte, status int) {
	fmt.Printf("%d %s\n", status, string(out))
}
