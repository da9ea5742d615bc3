package opc

import (
	"fmt"
	"path"
	"strings"
)

// ValidatePartName reports why name is not a safe, normalized part name.
// Containers with such names still load; callers that map part names onto a
// filesystem should refuse them.
func ValidatePartName(name string) error {
	p := strings.TrimSuffix(name, "/")
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("part name is empty")
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("part name must not be absolute")
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("part name must use forward slashes")
	}
	clean := path.Clean(p)
	if clean != p {
		return fmt.Errorf("part name must be normalized: %q", clean)
	}
	if clean == "." {
		return fmt.Errorf("part name must not be current directory")
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("part name must not escape")
	}
	return nil
}
