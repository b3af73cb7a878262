// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package starter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// errorLogName is the file a failed server writes its fault trace to.
func errorLogName(dir string, port int) string {
	return filepath.Join(dir, fmt.Sprintf("ts.error.%d.log", port))
}

// writeErrorLog records err, with its stack trace when it carries one, in
// the per-port error log. The file is truncated on every fault.
func writeErrorLog(dir string, port int, fault error) (string, error) {
	name := errorLogName(dir, port)
	f, err := os.Create(filepath.Clean(name))
	if err != nil {
		return name, err
	}

	if _, err = fmt.Fprintf(f, "%s\n%+v\n", time.Now().Format(time.RFC3339), fault); err != nil {
		_ = f.Close()

		return name, err
	}

	return name, f.Close()
}
