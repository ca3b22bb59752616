package main

import (
	"fmt"
	"os"
	"strings"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI decides whether the interactive progress view runs. Quiet
// runs never get one.
func shouldUseTUI(mode uiMode, quiet bool) bool {
	switch {
	case mode == uiModeOn:
		return true
	case mode == uiModeOff, quiet:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
