package apitypes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type PairingState struct {
	// State is one of "unpaired", "pairing" or "paired".
	State       string `json:"state"`
	Serial      uint32 `json:"serial,omitempty"`
	NeverPaired bool   `json:"neverPaired"`
	RemainingMs int64  `json:"remainingMs"`
}

type JoystickState struct {
	DirArrow int `json:"dirArrow"`
	Strength int `json:"strength"`
	Degrees  int `json:"degrees"`
}

type Button struct {
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

type StateResponse struct {
	Pairing  PairingState  `json:"pairing"`
	Joystick JoystickState `json:"joystick"`
	Buttons  []Button      `json:"buttons"`
	// Key is the feedback key currently shown ("-" when idle).
	Key string `json:"key"`
	// Image is the 5x5 matrix, rows separated by '|'.
	Image string `json:"image"`
}

type PairResponse struct {
	Pairing PairingState `json:"pairing"`
}

type ButtonResponse struct {
	Key     string `json:"key"`
	Known   bool   `json:"known"`
	Pressed bool   `json:"pressed"`
}

type MappingResponse struct {
	Keys []string `json:"keys"`
}

// MappingRequest maps feedback keys to images. An image is either a 25 cell
// string ("#...#|.#.#.|..") or an array of five row bitmasks.
type MappingRequest struct {
	Images map[string]string `json:"images"`
}

// UnmarshalJSON accepts row arrays as well as cell strings for each image.
func (m *MappingRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Images map[string]any `json:"images"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Images = make(map[string]string, len(raw.Images))
	for key, v := range raw.Images {
		s, err := imageString(v)
		if err != nil {
			return fmt.Errorf("image %q: %w", key, err)
		}
		m.Images[key] = s
	}
	return nil
}

func imageString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []any:
		rows := make([]string, 0, len(val))
		for _, r := range val {
			f, ok := r.(float64)
			if !ok || f < 0 || f > 31 || f != float64(int(f)) {
				return "", fmt.Errorf("row %v is not a 5 bit mask", r)
			}
			rows = append(rows, fmt.Sprintf("%05b", int(f)))
		}
		return strings.Join(rows, "|"), nil
	default:
		return "", fmt.Errorf("expected string or row array, got %T", v)
	}
}
