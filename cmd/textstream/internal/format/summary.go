// Copyright 2025 textstream Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/textstream/textstream/pkg/server"
)

// PrintTotalFailureSummary prints total failure with error and suggestions
// Example output:
//
//	✗ Failed to start server: invalid port: invalid port 0: must be between 1 and 65535
//
//	💡 Suggestions:
//	  → Use a port between 1 and 65535
//	  → Example:                 textstream server start --server.port 5000
func (f *formatter) PrintTotalFailureSummary(operation string, err error, errorCode string) error {
	if f.quiet {
		return nil
	}

	if f.mode == ModeJSON {
		return f.PrintJSON(map[string]any{
			"success":    false,
			"operation":  operation,
			"error":      err.Error(),
			"error_code": errorCode,
		})
	}

	var sb strings.Builder

	errorMsg := fmt.Sprintf("✗ Failed to %s: %v", operation, err)
	if f.color {
		sb.WriteString(color.RedString("%s\n", errorMsg))
	} else {
		sb.WriteString(errorMsg + "\n")
	}

	if suggestions := server.Suggestions(err); len(suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&sb, "  → %s\n", s)
		}
	}

	_, writeErr := f.stdout.Write([]byte(sb.String()))
	return writeErr
}
